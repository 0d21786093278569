package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/tripbooking/api"
	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/service/cancellation"
	"github.com/Domenick1991/tripbooking/internal/service/verification"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Run starts the HTTP server and blocks until context is canceled or the server fails.
func Run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	cancelSvc cancellation.CancellationUseCase,
	verifySvc verification.VerificationUseCase,
	checks map[string]HealthCheck,
) error {
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg.HTTP, logger, cancelSvc, verifySvc, checks),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Address)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http %s: %w", cfg.HTTP.Address, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(
	cfg config.HTTPConfig,
	logger *slog.Logger,
	cancelSvc cancellation.CancellationUseCase,
	verifySvc verification.VerificationUseCase,
	checks map[string]HealthCheck,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Content-Type", api.UserIDHeader, api.RequestIDHeader},
			ExposeHeaders:    []string{api.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", health(checks))

	bookings := router.Group("/api/bookings", api.RequireUser())
	api.NewBookingHandler(cancelSvc).Register(bookings)
	api.NewFlightHandler(verifySvc).Register(bookings)

	if cfg.SwaggerDir != "" {
		router.Static("/swagger", cfg.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/bookings.swagger.json"),
		)))
	}
	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		details := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				details[name] = err.Error()
				continue
			}
			details[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": details})
	}
}
