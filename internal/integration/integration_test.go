package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/auth"
	"prepmaster-service/internal/domain"
	"prepmaster-service/internal/infra/postgres"
	pgmigrations "prepmaster-service/internal/infra/postgres/migrations"
	infraredis "prepmaster-service/internal/infra/redis"
	"prepmaster-service/internal/scoring"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	now := testStart.Add(-time.Hour)
	clock := func() time.Time { return now }
	service := app.NewService(app.Deps{
		Questions: store,
		Tests:     store,
		Results:   store,
		Users:     store,
		Resolved:  infraredis.NewTestRepository(redisClient, postgres.NewTestLoader(pool), 5*time.Minute),
		Feeds:     infraredis.NewFeedStore(redisClient, 5*time.Minute, nil),
		Tokens:    auth.NewServiceWithClock("integration-secret", time.Hour, clock),
		Engine:    scoring.NewEngine(scoring.DefaultThresholds()),
		Now:       clock,
	})

	adminSess, err := service.Register(ctx, app.RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "secret1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	studentSess, err := service.Register(ctx, app.RegisterInput{Name: "Ravi", Email: "ravi@example.com", Password: "secret1", Role: domain.RoleStudent, Class: 9})
	if err != nil {
		t.Fatalf("register student: %v", err)
	}
	if _, err := service.Register(ctx, app.RegisterInput{Name: "Dup", Email: "ravi@example.com", Password: "secret1", Role: domain.RoleStudent}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	if _, err := service.Login(ctx, "ravi@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	admin := app.Caller{UserID: adminSess.User.ID, Role: domain.RoleAdmin}
	student := app.Caller{UserID: studentSess.User.ID, Role: domain.RoleStudent, Class: 9}

	questions, err := service.BulkImportQuestions(ctx, admin, []app.QuestionInput{
		{Type: domain.QuestionMCQ, Text: "Unit of force?", Options: []domain.Option{{ID: "a", Text: "Newton", IsCorrect: true}, {ID: "b", Text: "Joule"}},
			CorrectAnswer: "a", Marks: 5, Difficulty: domain.DifficultyEasy, Subject: "Science", Class: 9, Topic: "Force"},
		{Type: domain.QuestionShortAnswer, Text: "Powerhouse of the cell?", CorrectAnswer: "Mitochondria",
			Marks: 5, Difficulty: domain.DifficultyMedium, Subject: "Science", Class: 9, Topic: "Cells"},
	})
	if err != nil {
		t.Fatalf("import questions: %v", err)
	}
	test, err := service.CreateTest(ctx, admin, app.TestInput{
		Title: "Science unit test", Subject: "Science", Class: 9, Topics: []string{"Force", "Cells"},
		QuestionIDs: []string{questions[1].ID, questions[0].ID}, AssignedTo: []string{student.UserID},
		Duration: 45, TotalMarks: 10, StartTime: testStart, EndTime: testStart.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create test: %v", err)
	}

	resolved, err := service.GetTest(ctx, admin, test.ID)
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if len(resolved.Questions) != 2 || resolved.Questions[0].Topic != "Cells" {
		t.Fatalf("expected questions in test order, got %+v", resolved.Questions)
	}

	upcoming, err := service.ListTests(ctx, student, app.TestFilter{Status: domain.TestUpcoming})
	if err != nil || len(upcoming) != 1 {
		t.Fatalf("expected one upcoming test, got %d err %v", len(upcoming), err)
	}

	now = testStart.Add(25 * time.Minute)
	res, err := service.SubmitTest(ctx, student, test.ID, []domain.Response{
		{QuestionID: questions[0].ID, Answer: "a"},
		{QuestionID: questions[1].ID, Answer: "mitochondria"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TotalScore != 5 || res.PercentageScore != 50 || res.TimeTaken != 25 {
		t.Fatalf("unexpected result %+v", res)
	}

	view, err := service.GetResult(ctx, student, res.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if len(view.ChapterWiseAnalysis) != 2 || view.ChapterWiseAnalysis[0].Topic != "Force" {
		t.Fatalf("chapter analysis lost its order: %+v", view.ChapterWiseAnalysis)
	}
	if len(view.Feedback.Weaknesses) != 1 || view.Feedback.Weaknesses[0] != "Cells" {
		t.Fatalf("unexpected feedback %+v", view.Feedback)
	}

	analytics, err := service.ClassAnalytics(ctx, admin, app.AnalyticsQuery{Class: 9, Subject: "Science", From: testStart, To: testStart.Add(time.Hour)})
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.TotalResults != 1 || analytics.AverageScore != 50 || len(analytics.TopicAverages) != 2 {
		t.Fatalf("unexpected analytics %+v", analytics)
	}

	if err := service.DeleteQuestion(ctx, admin, questions[0].ID); !errors.Is(err, domain.ErrQuestionInUse) {
		t.Fatalf("expected question in use, got %v", err)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "prep", "POSTGRES_PASSWORD": "preppass", "POSTGRES_DB": "prepdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://prep:preppass@%s:%s/prepdb?sslmode=disable", host, port.Port())
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
