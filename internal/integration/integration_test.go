package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/postgres"
	pgmigrations "trivia-service/internal/infra/postgres/migrations"
	infraredis "trivia-service/internal/infra/redis"
	"trivia-service/internal/infra/storetest"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestBackends(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migratedDB(t, ctx, pgURL)
	defer db.Close()
	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	t.Run("PostgresGameStore", func(t *testing.T) {
		storetest.Run(t, func(t *testing.T) app.GameStore {
			truncateGames(t, ctx, db)
			return postgres.NewGameStore(db)
		})
	})

	t.Run("RedisGameStore", func(t *testing.T) {
		storetest.Run(t, func(t *testing.T) app.GameStore {
			if err := redisClient.FlushDB(ctx).Err(); err != nil {
				t.Fatalf("flush: %v", err)
			}
			return infraredis.NewGameStore(redisClient, time.Hour)
		})
	})

	t.Run("QuestionBank", func(t *testing.T) {
		repo := postgres.NewQuestionRepository(db)
		if _, err := repo.Upsert(ctx, sampleQuestions()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		edited := sampleQuestions()[:1]
		edited[0].CorrectChoice = "C"
		if _, err := repo.Upsert(ctx, edited); err != nil {
			t.Fatalf("upsert edit: %v", err)
		}

		pool := connectPool(t, ctx, pgURL)
		loaded, err := postgres.NewQuestionLoader(pool).LoadQuestions(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(loaded) != 2 || loaded[0].ID != "pg-1" || loaded[0].CorrectChoice != "C" || loaded[1].ChoiceText("A") != "Paris" {
			t.Fatalf("unexpected questions %+v", loaded)
		}
		// restore for the game below
		if _, err := repo.Upsert(ctx, sampleQuestions()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	})

	t.Run("HostedGame", func(t *testing.T) {
		truncateGames(t, ctx, db)
		if err := redisClient.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if _, err := postgres.NewQuestionRepository(db).Upsert(ctx, sampleQuestions()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		pool := connectPool(t, ctx, pgURL)

		settings := app.DefaultSettings()
		settings.QuestionCount = 2
		settings.Policy.EnforceTiming = false
		broadcaster := infraredis.NewBroadcaster(redisClient)
		service := app.NewGameService(
			postgres.NewGameStore(db),
			infraredis.NewQuestionBank(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute),
			settings,
			app.WithPublishers(broadcaster),
		)

		host := domain.Identity{ID: "host", Name: "Host"}
		alice := domain.Identity{ID: "u1", Name: "Alice"}
		bob := domain.Identity{ID: "u2", Name: "Bob"}

		game, err := service.CreateGame(ctx, host)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := service.CreateGame(ctx, alice); !errors.Is(err, domain.ErrLobbyTaken) {
			t.Fatalf("expected lobby taken, got %v", err)
		}
		events, cancel, err := broadcaster.Subscribe(ctx, game.ID)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer cancel()

		for _, who := range []domain.Identity{alice, bob} {
			if _, err := service.JoinGame(ctx, game.ID, who); err != nil {
				t.Fatalf("join %s: %v", who.ID, err)
			}
		}
		if _, err := service.StartGame(ctx, game.ID, host); err != nil {
			t.Fatalf("start: %v", err)
		}

		correct := map[string]string{"pg-1": "B", "pg-2": "A"}
		wrong := map[string]string{"pg-1": "C", "pg-2": "D"}
		q0 := game.QuestionIDs[0]
		res, err := service.SubmitAnswer(ctx, game.ID, alice, domain.AnswerSubmission{QuestionID: q0, Choice: correct[q0], TimeRemaining: 15})
		if err != nil || res.PointsEarned != 15 {
			t.Fatalf("alice answer: %+v %v", res, err)
		}
		res, err = service.SubmitAnswer(ctx, game.ID, bob, domain.AnswerSubmission{QuestionID: q0, Choice: wrong[q0], TimeRemaining: 10})
		if err != nil || res.PointsEarned != 0 {
			t.Fatalf("bob answer: %+v %v", res, err)
		}
		res, err = service.SubmitAnswer(ctx, game.ID, alice, domain.AnswerSubmission{QuestionID: q0, Choice: wrong[q0], TimeRemaining: 19})
		if err != nil || !res.AlreadySubmitted || res.PointsEarned != 15 {
			t.Fatalf("duplicate answer: %+v %v", res, err)
		}

		zero := 0
		if _, err := service.AdvanceQuestion(ctx, game.ID, host, &zero); err != nil {
			t.Fatalf("advance: %v", err)
		}
		stale, err := service.AdvanceQuestion(ctx, game.ID, host, &zero)
		if err != nil || stale.Changed || stale.NewIndex != 1 {
			t.Fatalf("stale advance: %+v %v", stale, err)
		}
		final, err := service.AdvanceQuestion(ctx, game.ID, host, nil)
		if err != nil || !final.Finished || final.Game.CurrentQuestionIndex != 1 {
			t.Fatalf("final advance: %+v %v", final, err)
		}

		lb, ok, err := service.RecentLeaderboard(ctx)
		if err != nil || !ok {
			t.Fatalf("recent leaderboard: %v", err)
		}
		if lb.GameID != game.ID || lb.Entries[0].Name != "Alice" || lb.Entries[0].Score != 15 {
			t.Fatalf("unexpected leaderboard %+v", lb)
		}

		history, err := service.History(ctx, alice)
		if err != nil || len(history) != 1 || history[0].Score != 15 {
			t.Fatalf("history: %+v %v", history, err)
		}

		seen := map[domain.EventType]bool{}
		deadline := time.After(5 * time.Second)
		for !seen[domain.EventGameFinished] {
			select {
			case ev := <-events:
				seen[ev.Type] = true
			case <-deadline:
				t.Fatalf("missing events, saw %v", seen)
			}
		}
		for _, typ := range []domain.EventType{domain.EventParticipantJoined, domain.EventGameStarted, domain.EventQuestionAdvanced} {
			if !seen[typ] {
				t.Fatalf("expected %s, saw %v", typ, seen)
			}
		}
	})
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		domain.NewQuestion("pg-1", "What is 2 + 2?", [4]string{"3", "4", "5", "22"}, "B", 20),
		domain.NewQuestion("pg-2", "Capital of France?", [4]string{"Paris", "Rome", "Lima", "Oslo"}, "A", 20),
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migratedDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func truncateGames(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	if _, err := db.ExecContext(ctx, `TRUNCATE trivia_participants, trivia_games`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func connectPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
