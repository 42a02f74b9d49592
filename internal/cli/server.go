package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/auth"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/amqp"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/mongo"
	"trivia-service/internal/infra/postgres"
	redisstore "trivia-service/internal/infra/redis"
	transport "trivia-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the connections opened for one process, closed in reverse order.
type backends struct {
	closers []func()
}

func (b *backends) onClose(fn func()) { b.closers = append(b.closers, fn) }

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var b backends
	defer b.close()

	var redisClient *redis.Client
	if cfg.Store.Driver == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		b.onClose(func() { _ = redisClient.Close() })
	}

	store, err := gameStore(ctx, cfg, redisClient, &b)
	if err != nil {
		return err
	}

	loader, err := questionLoader(ctx, cfg, &b)
	if err != nil {
		return err
	}
	questionTTL := config.Duration(cfg.Questions.TTL, 5*time.Minute)
	var questions app.QuestionBank
	var events interface {
		app.EventPublisher
		app.EventSubscriber
	}
	if redisClient != nil {
		questions = redisstore.NewQuestionBank(redisClient, loader, questionTTL)
		events = redisstore.NewBroadcaster(redisClient)
	} else {
		questions = memory.NewQuestionBank(loader, questionTTL)
		events = memory.NewBroadcaster()
	}

	publishers := []app.EventPublisher{events}
	mq, err := amqp.NewEventPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		return err
	}
	if mq.Enabled() {
		publishers = append(publishers, mq)
		b.onClose(func() { _ = mq.Close() })
	}

	service := app.NewGameService(store, questions, settingsFromConfig(cfg), app.WithPublishers(publishers...))
	router := transport.NewRouter(service, transport.RouterConfig{
		Resolver:       auth.New(cfg.Auth.JWTSecret),
		Events:         events,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s (store=%s, questions=%s)", finalPort, cfg.Store.Driver, cfg.Questions.Source)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func gameStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, b *backends) (app.GameStore, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return memory.NewGameStore(), nil
	case "redis":
		return redisstore.NewGameStore(redisClient, config.Duration(cfg.Redis.TTL, 24*time.Hour)), nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		db := openDB(cfg.Postgres.URL)
		b.onClose(func() { _ = db.Close() })
		if err := migrateDB(ctx, db); err != nil {
			return nil, err
		}
		return postgres.NewGameStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func questionLoader(ctx context.Context, cfg config.Config, b *backends) (memory.QuestionLoader, error) {
	switch cfg.Questions.Source {
	case "", "static":
		return memory.NewStaticQuestionLoader(sampleQuestions()), nil
	case "file":
		if cfg.Questions.File == "" {
			return nil, fmt.Errorf("questions.file not configured")
		}
		return memory.NewFileQuestionLoader(cfg.Questions.File), nil
	case "env":
		return memory.NewEnvQuestionLoader(questionsEnv), nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.onClose(pool.Close)
		return postgres.NewQuestionLoader(pool), nil
	case "mongo":
		client, err := mongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		b.onClose(func() { _ = client.Disconnect(context.Background()) })
		return mongo.NewQuestionLoader(client.Database(cfg.Mongo.Database)), nil
	default:
		return nil, fmt.Errorf("unknown question source %q", cfg.Questions.Source)
	}
}

// questionsEnv holds the question bank JSON for the env source.
const questionsEnv = "TRIVIA_QUESTIONS"

func settingsFromConfig(cfg config.Config) app.Settings {
	s := app.DefaultSettings()
	s.Hosts = cfg.Quiz.Hosts
	if cfg.Quiz.QuestionCount > 0 {
		s.QuestionCount = cfg.Quiz.QuestionCount
	}
	if cfg.Quiz.SoloQuestionCount > 0 {
		s.SoloQuestionCount = cfg.Quiz.SoloQuestionCount
	}
	if cfg.Quiz.AnswerSeconds > 0 {
		s.AnswerSeconds = cfg.Quiz.AnswerSeconds
	}
	if cfg.Quiz.SoloAnswerSeconds > 0 {
		s.SoloAnswerSeconds = cfg.Quiz.SoloAnswerSeconds
	}
	if cfg.Quiz.ReviewSeconds > 0 {
		s.ReviewSeconds = cfg.Quiz.ReviewSeconds
	}
	s.Policy = domain.TransitionPolicy{
		EnforceTiming: cfg.EnforceTiming(),
		Grace:         config.Duration(cfg.Quiz.PhaseGrace, time.Second),
	}
	s.TrustClientTime = cfg.Quiz.TrustClientTime
	return s
}
