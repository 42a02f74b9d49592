package mongo

import (
	"context"
	"fmt"

	"trivia-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// questionDocument is how a question is stored in the questions collection.
type questionDocument struct {
	ID            string `bson:"_id"`
	QuestionText  string `bson:"questionText"`
	ChoiceA       string `bson:"choiceA"`
	ChoiceB       string `bson:"choiceB"`
	ChoiceC       string `bson:"choiceC"`
	ChoiceD       string `bson:"choiceD"`
	CorrectChoice string `bson:"correctChoice"`
	MaxPoints     int    `bson:"maxPoints"`
}

func (d questionDocument) toDomain() domain.Question {
	return domain.NewQuestion(d.ID, d.QuestionText, [4]string{d.ChoiceA, d.ChoiceB, d.ChoiceC, d.ChoiceD}, d.CorrectChoice, d.MaxPoints)
}

// QuestionLoader reads the question bank from a MongoDB collection.
type QuestionLoader struct {
	col *mongo.Collection
}

func NewQuestionLoader(db *mongo.Database) *QuestionLoader {
	return &QuestionLoader{col: db.Collection("trivia_questions")}
}

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	cur, err := l.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer cur.Close(ctx)

	var questions []domain.Question
	for cur.Next(ctx) {
		var doc questionDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		q := doc.toDomain()
		if err := q.Validate(); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}

// Upsert stores questions keyed by id, replacing existing documents.
func (l *QuestionLoader) Upsert(ctx context.Context, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, domain.ErrNoQuestions
	}
	models := make([]mongo.WriteModel, 0, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return 0, err
		}
		doc := questionDocument{
			ID:            q.ID,
			QuestionText:  q.Text,
			ChoiceA:       q.ChoiceText("A"),
			ChoiceB:       q.ChoiceText("B"),
			ChoiceC:       q.ChoiceText("C"),
			ChoiceD:       q.ChoiceText("D"),
			CorrectChoice: q.CorrectChoice,
			MaxPoints:     q.MaxPoints,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": q.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	res, err := l.col.BulkWrite(ctx, models)
	if err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	return int(res.UpsertedCount + res.ModifiedCount), nil
}
