package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/mongo"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMongoQuestionBank(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	uri, cleanup := startMongo(t, ctx)
	defer cleanup()

	client, err := mongo.Connect(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(context.Background())

	loader := mongo.NewQuestionLoader(client.Database("trivia_test"))
	if n, err := loader.Upsert(ctx, sampleQuestions()); err != nil || n != 2 {
		t.Fatalf("upsert: n=%d err=%v", n, err)
	}
	// upserting again replaces instead of duplicating
	if _, err := loader.Upsert(ctx, sampleQuestions()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	bank := memory.NewQuestionBank(loader, time.Minute)
	got, err := bank.Questions(ctx, []string{"pg-2", "pg-1"})
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(got) != 2 || got[0].ChoiceText("A") != "Paris" || got[1].CorrectChoice != "B" {
		t.Fatalf("unexpected questions %+v", got)
	}
	sample, err := bank.Sample(ctx, 5)
	if err != nil || len(sample) != 2 {
		t.Fatalf("sample: %+v %v", sample, err)
	}
}

func startMongo(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start mongo: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("mongo host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("mongo port: %v", err)
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}
