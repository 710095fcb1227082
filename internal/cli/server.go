package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"assessment-engine/internal/app"
	"assessment-engine/internal/client"
	"assessment-engine/internal/config"
	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
	infrapg "assessment-engine/internal/infra/postgres"
	infraredis "assessment-engine/internal/infra/redis"
	transport "assessment-engine/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the assessment engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
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
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Without Postgres the engine runs on a seeded in-memory store,
	// useful for demos and local development.
	memStore := memory.NewStore()
	var (
		loader      memory.ContentLoader = memStore
		submissions app.SubmissionStore  = memStore
		users       app.UserStore        = memStore
		liveStore   app.LiveStateStore   = memStore
	)
	if pool != nil {
		pgStore := infrapg.NewStore(pool)
		loader = pgStore
		submissions = pgStore
		users = pgStore
		liveStore = pgStore
	} else {
		seedSampleTest(memStore)
	}

	contentTTL := config.Duration(cfg.Content.TTL, 10*time.Minute)
	var content app.ContentRepository
	if redisClient != nil {
		content = infraredis.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		content = memory.NewContentRepository(loader, contentTTL)
	}

	if redisClient != nil {
		liveStore = infraredis.NewLiveStateCache(redisClient, liveStore, redisTTL)
	}

	rewards := app.NewGamificationEngine(submissions, users)
	service := app.NewSubmissionService(content, submissions, rewards)
	live := app.NewLiveSessionController(liveStore)

	pollInterval := config.Duration(cfg.Live.PollInterval, 2*time.Second)
	maxViolations := cfg.Proctoring.MaxViolations
	if maxViolations <= 0 {
		maxViolations = client.DefaultMaxViolations
	}
	handler := transport.NewHandler(service, live, transport.ClientConfig{
		PollIntervalMillis: int(pollInterval.Milliseconds()),
		MaxViolations:      maxViolations,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment engine on :%s", finalPort)
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

// seedSampleTest provides minimal demo content; real deployments load
// content from Postgres.
func seedSampleTest(store *memory.Store) {
	store.SeedTest(domain.Test{
		ID:              "demo-test",
		Title:           "World Capitals",
		DurationMinutes: 15,
		Policy:          domain.ProctoringPolicy{LockTabs: true},
		Live:            domain.LiveState{Mode: domain.ModeLive, Status: domain.StatusDraft, CurrentQuestionIndex: -1},
	}, []domain.Question{
		{
			ID:            "q1",
			TestID:        "demo-test",
			Kind:          domain.KindChoice,
			Prompt:        "What is the capital of France?",
			Options:       []string{"Paris", "Lyon", "Marseille"},
			CorrectAnswer: "Paris",
		},
		{
			ID:            "q2",
			TestID:        "demo-test",
			Kind:          domain.KindText,
			Prompt:        "What is the capital of Japan?",
			CorrectAnswer: "Tokyo",
		},
	})
}
