package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/config"
	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"
	pginfra "quiz-duel-service/internal/infra/postgres"
	redisinfra "quiz-duel-service/internal/infra/redis"
	"quiz-duel-service/internal/transport/ws"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the duel server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pginfra.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.DuelStore
	if redisClient != nil {
		store = redisinfra.NewDuelStore(redisClient)
	} else {
		store = memory.NewDuelStore()
	}

	var results app.ResultWriter = memory.NewResultWriter()
	if pool != nil {
		results = pginfra.NewResultWriter(pool)
	}

	window := config.Duration(cfg.Game.AnswerWindow, 10*time.Second)
	grace := config.Duration(cfg.Game.GraceBuffer, 3*time.Second)

	hub := ws.NewHub(log)
	service := app.NewDuelService(store, quizRepo, results, hub, clockwork.NewRealClock(), window, grace, log)
	handler := ws.NewHandler(service, buildAuthorizer(cfg), hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/ws", handler)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting duel service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildAuthorizer wires the static token table from config, falling back to
// demo credentials so a bare checkout is playable.
func buildAuthorizer(cfg config.Config) app.Authorizer {
	tokens := make(map[string]domain.UserData, len(cfg.Auth.Tokens))
	for credential, user := range cfg.Auth.Tokens {
		tokens[credential] = domain.UserData{
			UserID:    user.UserID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
		}
	}
	if len(tokens) == 0 {
		tokens["demo-token-1"] = domain.UserData{UserID: "demo-1", Username: "player-one"}
		tokens["demo-token-2"] = domain.UserData{UserID: "demo-2", Username: "player-two"}
	}
	return app.NewStaticAuthorizer(tokens)
}

// sampleQuizzes provides minimal quiz content for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:   "quiz-1",
			Name: "Warm-up Arithmetic",
			Questions: []domain.Question{
				{
					ID:      "q1",
					Content: "What is 2 + 2?",
					Answers: []domain.Answer{
						{ID: "q1-a1", Content: "3"},
						{ID: "q1-a2", Content: "4", Correct: true},
						{ID: "q1-a3", Content: "5"},
					},
				},
				{
					ID:      "q2",
					Content: "What is 7 * 6?",
					Answers: []domain.Answer{
						{ID: "q2-a1", Content: "42", Correct: true},
						{ID: "q2-a2", Content: "36"},
						{ID: "q2-a3", Content: "48"},
					},
				},
			},
		},
	}
}
