package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-topic-notes/internal/bootstrap"
	"ai-topic-notes/internal/config"
	"ai-topic-notes/internal/model"
	"ai-topic-notes/internal/server"
	"ai-topic-notes/internal/tracer"
	"ai-topic-notes/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)

	// 3. Initialize Database
	gormDB, err := openDatabase(cfg.Database)
	if err != nil {
		log.Panicf("Unable to open database: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}
	go container.Invalidator.Run(ctx)

	// 6. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Cache.StoreTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	// Pending notes are written before the store goes away.
	container.Shutdown(shutdownCtx)
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}

// openDatabase returns nil for the memory driver. The local SQLite file is
// migrated on open; postgres schemas go through cmd/migrate.
func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.ResolvedDriver() {
	case config.DriverMemory:
		return nil, nil
	case config.DriverPostgres:
		if cfg.Verbose {
			return database.NewVerboseGormDBFromDSN(cfg.Connection)
		}
		return database.NewGormDBFromDSN(cfg.Connection)
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLitePath, cfg.Verbose)
		if err != nil {
			return nil, err
		}
		if err := model.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", cfg.SQLitePath, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
}
