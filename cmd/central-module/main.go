// Punto de entrada del módulo central de inventario. Carga la
// configuración, aplica migraciones, conecta a PostgreSQL, arma la capa
// de servicios (localizador, agregador, coordinador) y arranca el
// servidor HTTP con graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/retornaloop/inventario/central-module/internal/api/handlers"
	"github.com/retornaloop/inventario/central-module/internal/config"
	"github.com/retornaloop/inventario/central-module/internal/database"
	"github.com/retornaloop/inventario/central-module/internal/repository"
	"github.com/retornaloop/inventario/central-module/internal/server"
	"github.com/retornaloop/inventario/central-module/internal/service"
)

func main() {
	// 1. Carga de configuración desde variables de entorno
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Error al cargar la configuración", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Configuración del logging
	logger := config.SetupLogger(cfg)
	logger.Info("Módulo central iniciando",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Aplicación de migraciones
	logger.Info("Aplicando migraciones de BD...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Error en las migraciones de BD", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Conexión a PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Error al conectar con PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Capa de repositorios
	fabrica := repository.NewFabrica()
	txRunner := repository.NewTxRunner(pool)

	// 6. Capa de servicios
	catalogo := service.NewCatalogoCache(fabrica.Catalogo(pool))
	localizador := service.NewLocalizador(pool, fabrica, catalogo, logger)
	agregador := service.NewAgregador(pool, fabrica, catalogo, cfg.FanoutConcurrency, logger)
	coordinador := service.NewCoordinador(pool, txRunner, fabrica, localizador, catalogo, logger)

	// 7. Handlers HTTP
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), logger)
	apiHandler := handlers.NewAPIHandler(localizador, agregador, coordinador, logger)

	// 8. Creación y arranque del servidor HTTP
	srv := server.New(cfg, logger, apiHandler, healthHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Error del servidor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Módulo central detenido")
}
