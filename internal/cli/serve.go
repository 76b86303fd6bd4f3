package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-faucet-backend/internal/config"
	"github.com/tbourn/go-faucet-backend/internal/distribution"
	httpapi "github.com/tbourn/go-faucet-backend/internal/http"
	"github.com/tbourn/go-faucet-backend/internal/observability"
	"github.com/tbourn/go-faucet-backend/internal/services"
	"github.com/tbourn/go-faucet-backend/internal/sysutil"
)

// shutdownGrace is added to the poll deadline so in-flight claims can
// finish confirming before the server stops.
const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the claim API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, Version,
		attribute.String("faucet.store.driver", cfg.Store.Driver),
	)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	remote := distribution.New(cfg.Distributor)
	claims := services.NewClaimService(store, remote, cfg.Faucet)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, claims, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Str("distributor", cfg.Distributor.BaseURL).
			Str("distributor_key", sysutil.RedactSecret(cfg.Distributor.APIKey)).
			Dur("cooldown", cfg.Faucet.Cooldown).
			Msg("faucet listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Faucet.PollDeadline+shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}
