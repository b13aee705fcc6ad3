// Paquete server — servidor HTTP del módulo central con graceful shutdown.
// Sin TLS: HTTP dentro del clúster, la terminación TLS ocurre en el gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/retornaloop/inventario/central-module/internal/api/handlers"
	"github.com/retornaloop/inventario/central-module/internal/api/middleware"
	"github.com/retornaloop/inventario/central-module/internal/config"
)

// Server — servidor HTTP del módulo central.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New crea el servidor HTTP con rutas y middleware configurados.
func New(cfg *config.Config, logger *slog.Logger, api *handlers.APIHandler, health *handlers.HealthHandler) *Server {
	router := chi.NewRouter()

	// Middleware globales, en orden: identidad primero para que logging
	// y métricas vean el request_id.
	router.Use(middleware.RequestID())
	router.Use(middleware.AdminIdentity())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", health.Live)
	router.Get("/health/ready", health.Ready)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1/inventario-central", func(r chi.Router) {
		r.Get("/", api.ListarInventario)
		r.Post("/", api.CrearEnCentral)
		r.Get("/{rfid}/ubicacion", api.ResolverUbicacion)
		r.Post("/{rfid}/reasignar", api.Reasignar)
		r.Post("/{rfid}/desasignar", api.Desasignar)
		r.Get("/{rfid}/historial", api.HistorialUnidad)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run arranca el servidor y espera una señal de terminación (SIGINT,
// SIGTERM). Al recibirla ejecuta un graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Servidor HTTP iniciado",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Señal de terminación recibida", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error del servidor HTTP: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Ejecutando graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error en graceful shutdown: %w", err)
	}

	s.logger.Info("Servidor HTTP detenido")
	return nil
}
