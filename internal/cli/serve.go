package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/triptab/triptab/internal/api"
	"github.com/triptab/triptab/internal/auth"
	"github.com/triptab/triptab/internal/blob"
	"github.com/triptab/triptab/internal/cache"
	"github.com/triptab/triptab/internal/config"
	"github.com/triptab/triptab/internal/notify"
	"github.com/triptab/triptab/internal/service"
	"github.com/triptab/triptab/internal/slip"
	"github.com/triptab/triptab/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set TRIPTAB_JWT_SECRET)")
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", cfg.Database.Path)

	blobs, err := blob.NewFileStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}

	var ocr service.OCR
	if cfg.OCR.Endpoint != "" {
		ocr = slip.NewOCRClient(cfg.OCR.Endpoint, cfg.OCR.APIKey)
		slog.Info("ocr enabled", "endpoint", cfg.OCR.Endpoint)
	}

	logger := slog.Default()
	sinks := []notify.Notifier{notify.NewStoreNotifier(store, logger)}
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("telegram notifier disabled", "error", err)
		} else {
			sinks = append(sinks, tg)
			slog.Info("telegram notifications enabled", "chat_id", cfg.Telegram.ChatID)
		}
	}
	notifier := notify.NewFanout(sinks...)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	debtCache := cache.New(cfg.Cache.MaxEntries)
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	debts := service.NewDebtService(store, debtCache, cacheTTL, logger)
	settlements := service.NewSettlementService(store, blobs, ocr, notifier, debts, logger)

	server := api.NewServer(
		service.NewAuthService(authenticator, jwtManager, logger),
		debts,
		settlements,
		service.NewTripService(store, debts, logger),
		service.NewSocialService(store, notifier, logger),
		api.NewUserAPI(store, logger),
		jwtManager,
	)
	server.SetMediaHandler(blobs.Handler())

	// h2c lets gRPC-style and HTTP/2 clients connect without TLS; TLS is
	// the reverse proxy's job in this deployment.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           h2c.NewHandler(server.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
