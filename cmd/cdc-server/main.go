// Command cdc-server serves the simulation and layout HTTP API.
//
//	cdc-server [-config file] [-listen addr] [-db path]
//	cdc-server migrate <up|down|status|version|force N>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siepic/ebeam-cdc/internal/api"
	"github.com/siepic/ebeam-cdc/internal/config"
	"github.com/siepic/ebeam-cdc/internal/db"
	"github.com/siepic/ebeam-cdc/internal/layout"
	"github.com/siepic/ebeam-cdc/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to a JSON config (defaults apply when empty)")
	listen      = flag.String("listen", "", "Listen address, overrides server.listen")
	dbFile      = flag.String("db", "", "SQLite database path, overrides server.db_path")
	noDB        = flag.Bool("no-db", false, "Serve without run history")
	autoMigrate = flag.Bool("auto-migrate", true, "Apply pending migrations on startup")
	showVer     = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() *config.SimConfig {
	cfg := config.DefaultSimConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadSimConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *listen != "" {
		cfg.Server.Listen = listen
	}
	if *dbFile != "" {
		cfg.Server.DBPath = dbFile
	}
	return cfg
}

// openDatabase opens path and either migrates it or refuses to start on a
// stale schema.
func openDatabase(path string, migrate bool) (*db.DB, error) {
	if migrate {
		return db.NewDB(path)
	}
	database, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	migrations, err := db.MigrationsFS()
	if err != nil {
		database.Close()
		return nil, err
	}
	if err := database.CheckMigrations(migrations); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}

	cfg := loadConfig()

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], cfg.GetDBPath())
		return
	}
	if flag.NArg() > 0 {
		log.Fatalf("unknown command %q", flag.Arg(0))
	}

	layers := layout.DefaultLayerMap()
	if lf := cfg.GetLayerFile(); lf != "" {
		var err error
		if layers, err = layout.LoadLayerMap(lf); err != nil {
			log.Fatalf("failed to load layer file: %v", err)
		}
	}

	var database *db.DB
	if !*noDB {
		var err error
		database, err = openDatabase(cfg.GetDBPath(), *autoMigrate)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
	}

	srv := api.NewServer(cfg, database, layers)
	server := &http.Server{
		Addr:              cfg.GetListen(),
		Handler:           srv.Handler(os.Stdout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("%s listening on %s", version.String(), server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	srv.Runner().Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	srv.Runner().Wait()
	log.Printf("Graceful shutdown complete")
}
