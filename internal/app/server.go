package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamplane/teamplane/internal/billing"
	"github.com/teamplane/teamplane/internal/email"
	"github.com/teamplane/teamplane/internal/identity"
	"github.com/teamplane/teamplane/internal/logging"
	"github.com/teamplane/teamplane/internal/provision"
	"github.com/teamplane/teamplane/internal/store"
)

// Run starts the API server with graceful shutdown.
func Run(ctx context.Context, version string) error {
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "teamplane",
	})

	log.Info().Str("version", version).Msg("Starting Teamplane")

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.StoreDir(), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	st, err := store.Open(cfg.StoreDir())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	verifier, err := identity.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID, cfg.OIDCProviderName)
	if err != nil {
		return fmt.Errorf("init OIDC verifier: %w", err)
	}

	// Initialize email sender
	var emailSender email.Sender
	if cfg.ResendAPIKey != "" {
		emailSender = email.NewResendSender(cfg.ResendAPIKey)
		log.Info().Msg("Email sender configured (Resend)")
	} else {
		emailSender = email.NewLogSender(func(to, subject, body string) {
			const maxBody = 4096
			bodyForLog := body
			if len(bodyForLog) > maxBody {
				bodyForLog = bodyForLog[:maxBody] + "...(truncated)"
			}
			log.Info().
				Str("to", to).
				Str("subject", subject).
				Str("body", bodyForLog).
				Msg("Email (log-only, no email provider configured)")
		})
		log.Info().Msg("Email sender: log-only (set RESEND_API_KEY to enable)")
	}

	prov := provision.NewService(st, emailSender, cfg.EmailFrom, cfg.AppName, cfg.BaseURL)
	bill := billing.NewService(st, cfg.StripeAPIKey, cfg.BaseURL)
	handlers := NewHandlers(st, prov, bill, emailSender, cfg.EmailFrom, cfg.AppName, cfg.BaseURL)

	mux := http.NewServeMux()
	RegisterRoutes(mux, &Deps{
		Config:   cfg,
		Store:    st,
		Handlers: handlers,
		Webhook:  billing.NewWebhookHandler(cfg.StripeWebhookSecret, st),
		Verifier: verifier,
		Version:  version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           Instrument(mux),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		log.Info().Str("addr", addr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		log.Info().Msg("Context cancelled, shutting down...")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	cancel()
	log.Info().Msg("Teamplane stopped")
	return nil
}
