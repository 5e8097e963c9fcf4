package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mhurbridge/pkg/bridge"
	"mhurbridge/pkg/bus"
	"mhurbridge/pkg/config"
	"mhurbridge/pkg/host"
	"mhurbridge/pkg/host/memhost"
	"mhurbridge/pkg/logger"
)

var serveSlots int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the import bridge",
	Long: "Runs the bridge against the in-memory host: jobs received over UDP are imported " +
		"on the host loop and notifications are printed to the terminal.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, closeLog, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		defer func() { _ = closeLog() }()
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h, scheduler := newMemHost(cmd.ErrOrStderr(), serveSlots)
		b, err := startBridge(runCtx, cfg, h, appLogger)
		if err != nil {
			log.Error("Failed to start bridge", "error", err)
			return
		}
		defer b.Unregister()

		log.Info("Bridge serving", "address", b.Addr().String(), "status", cfg.Status.Enabled)
		if err := serve(runCtx, b, scheduler, log); err != nil {
			log.Error("Bridge runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&serveSlots, "slots", 4, "material slots on each imported mesh")
}

// newMemHost builds an in-memory host whose notifications render on w.
func newMemHost(w io.Writer, slots int) (host.Host, *memhost.Scheduler) {
	scene := memhost.NewScene()
	scheduler := memhost.NewScheduler()

	return host.Host{
		Scene:     scene,
		Importer:  memhost.NewImporter(scene, slots),
		Rigger:    &memhost.Rigger{},
		Scheduler: scheduler,
		Notifier:  memhost.NewNotifier(w),
	}, scheduler
}

func startBridge(ctx context.Context, cfg *config.Config, h host.Host, log *slog.Logger) (*bridge.Bridge, error) {
	b, err := bridge.New(cfg, h, log)
	if err != nil {
		return nil, fmt.Errorf("initialize bridge: %w", err)
	}
	if err := b.Register(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// serve runs the host loop until ctx ends or the status server fails, then
// logs how many jobs completed and failed meanwhile.
func serve(ctx context.Context, b *bridge.Bridge, scheduler *memhost.Scheduler, log *slog.Logger) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := b.Events().Subscribe(loopCtx, 0)
	defer unsubscribe()

	var completed, failed int
	defer func() {
		log.Info("Host loop stopped", "completed", completed, "failed", failed)
	}()

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(loopCtx)
	}()

	errs := b.Errors()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch event.Type {
			case bus.EventJobCompleted:
				completed++
			case bus.EventJobFailed:
				failed++
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			cancel()
			<-done
			return err
		case err := <-done:
			return err
		}
	}
}
