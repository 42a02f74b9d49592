package cli

import (
	"context"
	"fmt"
	"log"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/mongo"
	"trivia-service/internal/infra/postgres"

	"github.com/spf13/cobra"
)

// NewLoadQuestionsCmd imports a JSON question bank into Postgres or MongoDB.
func NewLoadQuestionsCmd(configPath *string) *cobra.Command {
	var (
		file   string
		target string
	)
	cmd := &cobra.Command{
		Use:   "load-questions",
		Short: "Import a JSON question bank into the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return loadQuestions(cmd.Context(), cfg, file, target)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the question bank JSON (defaults to questions.file)")
	cmd.Flags().StringVar(&target, "target", "postgres", "postgres or mongo")
	return cmd
}

func loadQuestions(ctx context.Context, cfg config.Config, file, target string) error {
	if file == "" {
		file = cfg.Questions.File
	}
	if file == "" {
		return fmt.Errorf("no question file given")
	}
	questions, err := memory.NewFileQuestionLoader(file).LoadQuestions(ctx)
	if err != nil {
		return err
	}

	var n int
	switch target {
	case "postgres":
		if cfg.Postgres.URL == "" {
			return fmt.Errorf("postgres url not configured")
		}
		db := openDB(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}
		n, err = postgres.NewQuestionRepository(db).Upsert(ctx, questions)
	case "mongo":
		client, cerr := mongo.Connect(ctx, cfg.Mongo.URI)
		if cerr != nil {
			return cerr
		}
		defer client.Disconnect(context.Background())
		n, err = mongo.NewQuestionLoader(client.Database(cfg.Mongo.Database)).Upsert(ctx, questions)
	default:
		return fmt.Errorf("unknown target %q", target)
	}
	if err != nil {
		return err
	}
	log.Printf("loaded %d questions from %s into %s", n, file, target)
	return nil
}

// sampleQuestions is the built-in bank used by the static source.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		domain.NewQuestion("sample-01", "What is 2 + 2?", [4]string{"3", "4", "5", "22"}, "B", 20),
		domain.NewQuestion("sample-02", "What is the capital of France?", [4]string{"Paris", "Rome", "Madrid", "Berlin"}, "A", 20),
		domain.NewQuestion("sample-03", "Which planet is known as the Red Planet?", [4]string{"Venus", "Jupiter", "Mars", "Mercury"}, "C", 20),
		domain.NewQuestion("sample-04", "How many continents are there?", [4]string{"5", "6", "8", "7"}, "D", 20),
		domain.NewQuestion("sample-05", "What is the chemical symbol for gold?", [4]string{"Au", "Ag", "Gd", "Go"}, "A", 20),
		domain.NewQuestion("sample-06", "Which ocean is the largest?", [4]string{"Atlantic", "Pacific", "Indian", "Arctic"}, "B", 20),
		domain.NewQuestion("sample-07", "Who wrote \"Romeo and Juliet\"?", [4]string{"Dickens", "Austen", "Shakespeare", "Tolstoy"}, "C", 20),
		domain.NewQuestion("sample-08", "What is the boiling point of water at sea level in Celsius?", [4]string{"90", "100", "110", "120"}, "B", 20),
		domain.NewQuestion("sample-09", "How many sides does a hexagon have?", [4]string{"5", "7", "8", "6"}, "D", 20),
		domain.NewQuestion("sample-10", "Which gas do plants absorb from the air?", [4]string{"Carbon dioxide", "Oxygen", "Nitrogen", "Helium"}, "A", 20),
		domain.NewQuestion("sample-11", "What is the largest mammal?", [4]string{"Elephant", "Blue whale", "Giraffe", "Orca"}, "B", 20),
		domain.NewQuestion("sample-12", "In which year did the first person walk on the Moon?", [4]string{"1965", "1972", "1969", "1959"}, "C", 20),
	}
}
