package cli

import (
	"context"
	"log/slog"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/hosting"
	"github.com/denniswebb/mediacms/src/features/importing"
	"github.com/denniswebb/mediacms/src/features/logging"
	"github.com/denniswebb/mediacms/src/features/metrics"
	"github.com/denniswebb/mediacms/src/features/watching"
	"github.com/denniswebb/mediacms/src/infra/files"
	"github.com/denniswebb/mediacms/src/infra/fingerprint"
	"github.com/denniswebb/mediacms/src/infra/ledger"
	"github.com/denniswebb/mediacms/src/infra/notify"
	"github.com/denniswebb/mediacms/src/infra/sink"
	"github.com/denniswebb/mediacms/src/infra/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired pipeline shared by the run and scan commands.
type app struct {
	cfg      *config.Manager
	ledger   *ledger.SqliteLedger
	service  *watching.Service
	server   *hosting.Server
	registry *prometheus.Registry
}

// buildApp loads configuration and wires every component of the pipeline.
func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	cfg := cfgManager.Get()

	importLedger, err := ledger.NewSqliteLedger(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	reconciled, err := importLedger.Reconcile(ctx)
	if err != nil {
		importLedger.Close()
		return nil, err
	}
	if reconciled > 0 {
		slog.Warn("buildApp: reconciled interrupted import attempts", "count", reconciled)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	notifier := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Enabled)

	importer := importing.NewImporter(
		importLedger,
		fingerprint.NewService(),
		sink.NewHTTPSink(cfg.Sink.URL, cfg.Sink.Token, nil),
		files.NewRelocator(),
		notifier,
		recorder,
		cfgManager,
	)

	watchService := watching.NewService(cfgManager, importer, recorder, watcher.NewSource)

	a := &app{
		cfg:      cfgManager,
		ledger:   importLedger,
		service:  watchService,
		registry: registry,
	}
	if cfg.Server.Enabled {
		a.server = hosting.NewServer(cfgManager, watchService, importLedger, registry)
	}
	return a, nil
}

// startServer launches the status server when enabled.
func (a *app) startServer() {
	if a.server == nil {
		return
	}
	go func() {
		slog.Info("Status server listening", "port", a.cfg.Get().Server.Port)
		if err := a.server.Start(); err != nil {
			slog.Error("Status server stopped", "error", err)
		}
	}()
}

// close releases everything buildApp opened.
func (a *app) close() {
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			slog.Error("Failed to shut down status server", "error", err)
		}
	}
	if err := a.ledger.Close(); err != nil {
		slog.Error("Failed to close ledger", "error", err)
	}
}
