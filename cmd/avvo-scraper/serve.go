package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maltedev/avvo-profile-scraper/internal/api"
	"github.com/maltedev/avvo-profile-scraper/internal/database"
	"github.com/maltedev/avvo-profile-scraper/internal/events"
	"github.com/maltedev/avvo-profile-scraper/internal/jobs"
	"github.com/maltedev/avvo-profile-scraper/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the background job worker.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	filter, err := cfg.Scraper.Filter()
	if err != nil {
		return err
	}

	service, closeBrowser, err := newService()
	if err != nil {
		return err
	}
	defer closeBrowser()

	var (
		saver  jobs.ResultSaver
		outbox api.OutboxStats
	)
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database.Options())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}

		repo := database.NewOutboxRepository(db)
		saver = events.NewPublisher(db, log)
		outbox = repo

		if cfg.Redis.Enabled {
			stop, err := startRelay(ctx, repo)
			if err != nil {
				return err
			}
			defer stop()
		}
	}

	tasks := queue.NewInMemoryQueue(cfg.Queue.MaxSize)
	defer tasks.Close()

	manager := jobs.NewManager(tasks, service, saver, log)
	go manager.StartWorker(ctx)

	handlers := api.NewHandlers(service, manager, saver, outbox, filter, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, api.DefaultRouterOptions()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// startRelay connects to Redis and forwards outbox events until ctx ends.
func startRelay(ctx context.Context, repo *database.OutboxRepository) (func(), error) {
	client, err := connectRedis(ctx)
	if err != nil {
		return nil, err
	}

	relay := database.NewRelay(repo, client, log, database.RelayConfig{
		PollInterval: cfg.Redis.RelayInterval,
		BatchSize:    100,
		StreamMaxLen: 10000,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("relay stopped with error", "error", err)
		}
	}()

	return func() { client.Close() }, nil
}

func connectRedis(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
