package main

import (
	"chat-relay/api"
	"chat-relay/contract"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	mongorepo "chat-relay/repositories/mongo"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/sanitize"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// store bundles the repositories of the selected backend with its cleanup.
type store struct {
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	pinger       contract.Pinger
	close        func()
}

// run wires every component and owns the server lifecycle so that deferred
// cleanups execute before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Store
	st, err := openStore(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer st.close()

	// 3. Sanitizing & moderation
	moderator, err := loadModerator(config, log)
	if err != nil {
		return exitConfig, err
	}
	sanitizer := sanitize.NewSanitizer(moderator, log)

	// 4. Services
	clock := runtime.SystemClock{}
	presence := services.NewPresenceService(log, st.participants, sanitizer, clock)
	messages := services.NewMessageService(log, st.messages, presence, sanitizer, clock)
	presence.WithNotices(messages)

	// 5. Background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewEvictionWorker(
			log, presence, messages, clock,
			config.SweepInterval, config.ParticipantTimeout,
		),
		workers.NewMonitoringWorker(log, presence, config.MetricInterval),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. HTTP server
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           api.NewRouter(log, presence, messages, st.pinger, config.MaxBodyBytes),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", server.Addr, "store", config.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("HTTP server shutdown incomplete", "error", shutdownErr)
	}
	sup.Stop()
	<-supDone
	log.Info("Relay stopped cleanly")

	return code, err
}

func openStore(ctx context.Context, config internal.Config, log *slog.Logger) (store, error) {
	if config.Store == internal.StoreMongo {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := mongorepo.NewDB(connectCtx, config.MongoURL, config.MongoDatabase)
		if err != nil {
			return store{}, fmt.Errorf("mongo connection failed: %w", err)
		}
		log.Info("Connected to MongoDB", "database", config.MongoDatabase)
		return store{
			participants: mongorepo.NewParticipantRepository(db),
			messages:     mongorepo.NewMessageRepository(db),
			pinger:       mongorepo.NewPinger(db),
			close: func() {
				log.Info("Closing MongoDB...")
				_ = db.Client().Disconnect(context.Background())
			},
		}, nil
	}

	db, err := repositories.OpenBadger(config.BadgerFilepath, config.BadgerInMemory, log)
	if err != nil {
		return store{}, fmt.Errorf("database opening failed: %w", err)
	}
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		_ = db.Close()
		return store{}, fmt.Errorf("message sequence failed: %w", err)
	}
	return store{
		participants: repositories.NewParticipantRepository(db, log),
		messages:     messageRepository,
		pinger:       repositories.NewBadgerPinger(db),
		close: func() {
			log.Info("Closing BadgerDB...")
			_ = messageRepository.Close()
			_ = db.Close()
		},
	}, nil
}

// loadModerator returns nil when no censored word directory is configured.
func loadModerator(config internal.Config, log *slog.Logger) (*moderation.Moderator, error) {
	if config.CensoredDir == "" {
		return nil, nil
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	data, err := moderation.NewCensoredLoader(os.DirFS(config.CensoredDir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("censored words loading failed: %w", err)
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, char, log)
}
