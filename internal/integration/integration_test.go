package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"iqplay/internal/app"
	"iqplay/internal/domain"
	"iqplay/internal/identity"
	"iqplay/internal/infra/postgres"
	pgmigrations "iqplay/internal/infra/postgres/migrations"
	infraredis "iqplay/internal/infra/redis"
)

func TestRoundEndToEnd(t *testing.T) {
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

	loader := postgres.NewCatalogueLoader(pool)
	if n, err := loader.Import(ctx, sampleCatalogue(t)); err != nil || n != 10 {
		t.Fatalf("import catalogue: n=%d err=%v", n, err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewDocumentStore(pool)
	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewCatalogueRepository(redisClient, loader, 5*time.Minute),
		store,
		identity.ContextIdentity{},
		app.Options{NewRand: func() *rand.Rand { return rand.New(rand.NewSource(1)) }},
	)
	ctx = identity.WithUser(ctx, &domain.User{ID: "u1", Email: "host@example.com"})

	game, err := service.CreateGame(ctx, domain.GameDraft{
		GameName:   "Friday Night",
		PlayerOne:  "Alice",
		PlayerTwo:  "Bob",
		Categories: []string{"Science", "History", "Sports", "Music", "Movies", "Geography"},
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	games, err := service.ListGames(ctx, "friday")
	if err != nil || len(games) != 1 || games[0].ID != game.ID {
		t.Fatalf("list games: %+v err=%v", games, err)
	}

	for round := 0; round < 2; round++ {
		if _, err := service.Start(ctx, app.StartRequest{GameID: game.ID, Category: "Science", Tier: "Medium"}); err != nil {
			t.Fatalf("start round %d: %v", round, err)
		}
		var snap app.Snapshot
		for i := 0; i < 10; i++ {
			if _, err := service.Select(ctx, game.ID, "a"); err != nil {
				t.Fatalf("select: %v", err)
			}
			if snap, err = service.Next(ctx, game.ID); err != nil {
				t.Fatalf("next: %v", err)
			}
		}
		if snap.State != app.StateCompleted {
			t.Fatalf("expected completed round, got %s", snap.State)
		}
	}

	result, err := service.Result(ctx, game.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !result.Draw || result.PlayerOneScore != 25 || result.PlayerTwoScore != 25 {
		t.Fatalf("expected 25-25 draw, got %+v", result)
	}

	standings, err := service.Standings(ctx, game.ID)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	// two drawn Medium rounds: 125 + 125 each
	if standings.Leader != "Both Players" || !standings.Entries[0].Points.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected standings %+v", standings)
	}

	if err := service.EndGame(ctx, game.ID); err != nil {
		t.Fatalf("end game: %v", err)
	}
	if _, err := store.Get(ctx, domain.CollectionPoints, game.ID); err != domain.ErrDocumentNotFound {
		t.Fatalf("expected points removed, got %v", err)
	}
}

func TestPostgresIncrementIsAtomic(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewDocumentStore(pool)

	game := domain.Game{ID: "g1", PlayerOne: "Alice", PlayerTwo: "Bob"}
	award := app.Settle(10, 10, domain.TierVeryDifficult)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.MergeAward(ctx, store, game, award); err != nil {
				t.Errorf("merge: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, err := store.Get(ctx, domain.CollectionPoints, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var entry domain.LedgerEntry
	if err := doc.Decode(&entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.PlayerOnePoints.String() != "6000" || entry.PlayerTwoPoints.String() != "6000" {
		t.Fatalf("expected 6000 each, got %+v", entry)
	}
	if entry.PlayerOne != "Alice" || entry.GameID != "g1" {
		t.Fatalf("seed fields lost: %+v", entry)
	}
}

func TestPostgresLoaderRejectsInvalidRows(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `INSERT INTO questions (category, tier, text, data) VALUES ('Science', 'Hard', 'Broken?', '{"question": "Broken?", "options": ["a", "b"], "correct": "z"}'::jsonb)`)
	if err != nil {
		t.Fatalf("insert row: %v", err)
	}
	_, err = postgres.NewCatalogueLoader(pool).LoadPool(ctx, "Science", domain.TierHard)
	if !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func sampleCatalogue(t *testing.T) domain.Catalogue {
	t.Helper()
	cat := domain.Catalogue{}
	pool := make([]domain.Question, 10)
	for i := range pool {
		pool[i] = domain.Question{
			Text:    fmt.Sprintf("Question %d?", i+1),
			Options: []string{"a", "b", "c", "d"},
			Correct: "a",
		}
	}
	if err := cat.Add("Science", domain.TierMedium, pool...); err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	return cat
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
