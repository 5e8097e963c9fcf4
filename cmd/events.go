package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"mhurbridge/pkg/bridge"
	"mhurbridge/pkg/bus"
	"mhurbridge/pkg/logger"
)

var eventsAddr string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow job events from a running bridge",
	Long:  "Connects to the bridge status server's event stream and logs each job lifecycle event until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		appLogger, closeLog, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		defer func() { _ = closeLog() }()

		addr := eventsAddr
		if addr == "" {
			addr = cfg.Status.Address()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = streamEvents(ctx, eventsURL(addr), func(event bus.Event) {
			bridge.LogEvent(appLogger, event)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsAddr, "addr", "", "status server address (default: status host and port from config)")
}

func eventsURL(addr string) string {
	return (&url.URL{Scheme: "ws", Host: addr, Path: "/events"}).String()
}

// streamEvents calls handle for every event until the server closes the
// stream or ctx ends.
func streamEvents(ctx context.Context, target string, handle func(bus.Event)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", target, err)
	}
	defer conn.Close()

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stopped:
		}
	}()

	slog.Default().With("component", "cmd.events").Debug("Event stream connected", "url", target)
	for {
		var event bus.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		handle(event)
	}
}
