// Sous — AI cooking assistant backend.
// Entry point: flag handling, subcommand dispatch and full service wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sous-ai/sous/internal/api"
	"github.com/sous-ai/sous/internal/domain/chat"
	"github.com/sous-ai/sous/internal/domain/extract"
	"github.com/sous-ai/sous/internal/domain/mealplan"
	"github.com/sous-ai/sous/internal/domain/routing"
	"github.com/sous-ai/sous/internal/domain/tool"
	"github.com/sous-ai/sous/internal/infra/cache"
	"github.com/sous-ai/sous/internal/infra/config"
	"github.com/sous-ai/sous/internal/infra/eventbus"
	"github.com/sous-ai/sous/internal/infra/ledger"
	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/logger"
	"github.com/sous-ai/sous/internal/infra/metrics"
	"github.com/sous-ai/sous/internal/infra/sqlite"
	"github.com/sous-ai/sous/internal/server"
	"github.com/sous-ai/sous/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("sous", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	switch fs.Arg(0) {
	case "migrate":
		return runMigrate(out)
	case "serve", "":
		return runServe(out)
	default:
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

func runMigrate(out io.Writer) int {
	cfg := config.Load()
	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(out, "open database: %v\n", err) //nolint:errcheck
		return 1
	}
	defer db.Close() //nolint:errcheck

	if err := sqlite.MigrateUp(db); err != nil {
		fmt.Fprintf(out, "migrate: %v\n", err) //nolint:errcheck
		return 1
	}
	schemaVersion, err := sqlite.MigrationVersion(db)
	if err != nil {
		fmt.Fprintf(out, "read schema version: %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "database at schema version %d\n", schemaVersion) //nolint:errcheck
	return 0
}

func runServe(out io.Writer) int {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Str("version", version.Version).Msg("starting sous")

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Msg("open database")
		return 1
	}
	if err := sqlite.MigrateUp(db); err != nil {
		log.Error().Err(err).Msg("migrate database")
		return 1
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	tiers, err := llm.LoadRegistry(cfg.TiersFile)
	if err != nil {
		log.Error().Err(err).Msg("load tier registry")
		return 1
	}

	bus := eventbus.New()
	gateway := llm.NewGateway(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
	client := llm.NewClient(gateway, tiers, bus, m, log, llm.ClientOptions{
		MaxRetries:  cfg.MaxRetries,
		CallTimeout: cfg.CallTimeout,
	})
	router := routing.NewRouter(tiers)

	responseCache, err := cache.New(db, m, log, cache.Options{MaxMemEntries: cfg.CacheMemEntries})
	if err != nil {
		log.Error().Err(err).Msg("build response cache")
		return 1
	}

	toolRegistry := tool.NewRegistry()
	store := tool.NewMemStore()
	if err := tool.RegisterBuiltins(toolRegistry, store); err != nil {
		log.Error().Err(err).Msg("register builtin tools")
		return 1
	}
	executor := tool.NewExecutor(toolRegistry, m, log)

	convs := chat.NewStore(cfg.ConversationTTL)
	convs.StartJanitor(5 * time.Minute)
	defer convs.Close()

	chatSvc := chat.NewService(client, router, responseCache, executor, toolRegistry, convs, m, log, chat.Options{
		MaxToolRounds: cfg.MaxToolRounds,
		CacheTTL:      cfg.CacheTTL,
	})
	cascade := extract.NewCascade(client, m, log)
	planSvc := mealplan.NewService(client, router, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	usageLedger := ledger.New(db, log)
	usageLedger.Start(ctx, bus)

	handler := api.NewRouter(api.Deps{
		Chat:             chatSvc,
		Extractor:        cascade,
		Planner:          planSvc,
		Usage:            usageLedger,
		Cache:            responseCache,
		AccessSecretHash: cfg.AccessSecretHash,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:              log,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.HTTPHost
	srvCfg.Port = cfg.HTTPPort
	srv := server.NewServer(handler, db, srvCfg, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
			return 1
		}
		return 0
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
		return 1
	}
	return 0
}

func printHelp(out io.Writer) {
	helpText := `Sous — AI cooking assistant backend

Usage:
  sous [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the API server (default)
  migrate      Run database migrations and exit

Examples:
  sous --version
  sous serve
  sous migrate`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
