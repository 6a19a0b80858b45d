package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
	pginfra "quiz-duel-service/internal/infra/postgres"
	pgmigrations "quiz-duel-service/internal/infra/postgres/migrations"
	redisinfra "quiz-duel-service/internal/infra/redis"
)

// seededQuiz holds the generated ids of the catalog rows inserted for a test.
type seededQuiz struct {
	quizID     string
	questionID string
	correctID  string
	wrongID    string
}

func TestDuelEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seeded := seedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	notifier := newStubNotifier()
	service := app.NewDuelService(
		redisinfra.NewDuelStore(redisClient),
		redisinfra.NewQuizRepository(redisClient, pginfra.NewQuizLoader(pool), 5*time.Minute),
		pginfra.NewResultWriter(pool),
		notifier,
		clockwork.NewRealClock(),
		10*time.Second,
		3*time.Second,
		zerolog.Nop(),
	)

	if err := service.Register(ctx, "conn-1", domain.UserData{UserID: "u1", Username: "Alice"}); err != nil {
		t.Fatalf("register u1: %v", err)
	}
	if err := service.Register(ctx, "conn-2", domain.UserData{UserID: "u2", Username: "Bob"}); err != nil {
		t.Fatalf("register u2: %v", err)
	}
	notifier.connect("conn-1")
	notifier.connect("conn-2")

	if err := service.JoinQuiz(ctx, "conn-1", seeded.quizID); err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if err := service.JoinQuiz(ctx, "conn-2", seeded.quizID); err != nil {
		t.Fatalf("join u2: %v", err)
	}

	if err := service.SubmitAnswer(ctx, "conn-1", &seeded.correctID); err != nil {
		t.Fatalf("answer u1: %v", err)
	}
	if err := service.SubmitAnswer(ctx, "conn-2", &seeded.wrongID); err != nil {
		t.Fatalf("answer u2: %v", err)
	}

	if got := notifier.eventCount(domain.EventGameFinished); got != 2 {
		t.Fatalf("gameFinished emissions = %d, want 2", got)
	}

	rows, err := pool.Query(ctx, `
		SELECT r.user_id, r.score, r.status
		FROM results r
		JOIN games g ON g.id = r.game_id
		WHERE g.quiz_id = $1
		ORDER BY r.user_id`, seeded.quizID)
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	defer rows.Close()

	type row struct {
		userID string
		score  int
		status string
	}
	var persisted []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.userID, &r.score, &r.status); err != nil {
			t.Fatalf("scan result: %v", err)
		}
		persisted = append(persisted, r)
	}
	if len(persisted) != 2 {
		t.Fatalf("persisted results = %d, want 2", len(persisted))
	}
	if persisted[0].userID != "u1" || persisted[0].score != 1 || persisted[0].status != "win" {
		t.Fatalf("u1 record = %+v", persisted[0])
	}
	if persisted[1].userID != "u2" || persisted[1].score != 0 || persisted[1].status != "lose" {
		t.Fatalf("u2 record = %+v", persisted[1])
	}

	// The finished room must leave nothing behind in Redis.
	keys, err := redisClient.Keys(ctx, "duel:room:*").Result()
	if err != nil {
		t.Fatalf("scan redis keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("leftover room keys: %v", keys)
	}
}

// stubNotifier satisfies the notifier boundary without a websocket hub.
type stubNotifier struct {
	mu     sync.Mutex
	conns  map[string]bool
	rooms  map[string]map[string]struct{}
	events []string
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{conns: make(map[string]bool), rooms: make(map[string]map[string]struct{})}
}

func (n *stubNotifier) connect(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conns[connID] = true
}

func (n *stubNotifier) JoinRoom(roomID string, connIDs ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	members, ok := n.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		n.rooms[roomID] = members
	}
	for _, connID := range connIDs {
		members[connID] = struct{}{}
	}
}

func (n *stubNotifier) LeaveRoom(roomID string, connIDs ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, connID := range connIDs {
		delete(n.rooms[roomID], connID)
	}
}

func (n *stubNotifier) EmitRoom(roomID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for range n.rooms[roomID] {
		n.events = append(n.events, event)
	}
}

func (n *stubNotifier) EmitConn(connID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *stubNotifier) RoomMembers(roomID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	members := make([]string, 0, len(n.rooms[roomID]))
	for connID := range n.rooms[roomID] {
		members = append(members, connID)
	}
	return members
}

func (n *stubNotifier) IsConnected(connID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[connID]
}

func (n *stubNotifier) eventCount(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e == event {
			count++
		}
	}
	return count
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "duel", "POSTGRES_PASSWORD": "duelpass", "POSTGRES_DB": "dueldb"},
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
	dsn := fmt.Sprintf("postgres://duel:duelpass@%s:%s/dueldb?sslmode=disable", host, port.Port())
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

// seedCatalog migrates the schema and inserts one quiz with one question.
func seedCatalog(t *testing.T, ctx context.Context, dsn string) seededQuiz {
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

	seeded := seededQuiz{
		quizID:     uuid.NewString(),
		questionID: uuid.NewString(),
		correctID:  uuid.NewString(),
		wrongID:    uuid.NewString(),
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO quizzes (id, name) VALUES (?, ?)`,
		seeded.quizID, "Integration Trivia"); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO questions (id, quiz_id, content) VALUES (?, ?, ?)`,
		seeded.questionID, seeded.quizID, "What is 2 + 2?"); err != nil {
		t.Fatalf("insert question: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, content, is_correct) VALUES (?, ?, ?, ?)`,
		seeded.correctID, seeded.questionID, "4", true); err != nil {
		t.Fatalf("insert correct answer: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, content, is_correct) VALUES (?, ?, ?, ?)`,
		seeded.wrongID, seeded.questionID, "5", false); err != nil {
		t.Fatalf("insert wrong answer: %v", err)
	}
	return seeded
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
