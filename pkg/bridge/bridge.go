// Package bridge wires the receiver, mailbox, dispatcher and import pipeline
// together and attaches them to a host.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"mhurbridge/pkg/bus"
	"mhurbridge/pkg/config"
	"mhurbridge/pkg/dispatcher"
	"mhurbridge/pkg/host"
	"mhurbridge/pkg/mailbox"
	"mhurbridge/pkg/mapping"
	"mhurbridge/pkg/pipeline"
	"mhurbridge/pkg/protocol"
	"mhurbridge/pkg/receiver"
)

type Bridge struct {
	cfg  *config.Config
	host host.Host
	log  *slog.Logger

	eventLog *slog.Logger

	events     *bus.Bus
	mailbox    *mailbox.Mailbox[*protocol.ImportJob]
	engine     *mapping.Engine
	receiver   *receiver.Receiver
	dispatcher *dispatcher.Dispatcher
	status     *statusServer

	mu     sync.Mutex
	cancel context.CancelFunc
	errs   <-chan error
}

func New(cfg *config.Config, h host.Host, log *slog.Logger) (*Bridge, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if h.Scheduler == nil {
		return nil, errors.New("host scheduler is required")
	}
	if log == nil {
		log = slog.Default()
	}

	rules := mapping.DefaultRules()
	if cfg.Mapping.RulesFile != "" {
		loaded, err := mapping.LoadRules(cfg.Mapping.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}
	engine := mapping.NewEngine(rules, log)

	imports, err := pipeline.New(h, engine, cfg.Pipeline, log)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}

	events := bus.New()
	box := mailbox.New[*protocol.ImportJob]()

	recv, err := receiver.New(cfg.Bridge, box, events, log)
	if err != nil {
		return nil, fmt.Errorf("initialize receiver: %w", err)
	}

	disp, err := dispatcher.New(box, imports, h.Notifier, events, cfg.Dispatcher.Interval(), log)
	if err != nil {
		return nil, fmt.Errorf("initialize dispatcher: %w", err)
	}

	b := &Bridge{
		cfg:        cfg,
		host:       h,
		log:        log.With("component", "bridge"),
		eventLog:   log.With("component", "bus.events"),
		events:     events,
		mailbox:    box,
		engine:     engine,
		receiver:   recv,
		dispatcher: disp,
	}
	if cfg.Status.Enabled {
		b.status = newStatusServer(cfg.Status, events, recv, box.Signaled, log)
	}

	return b, nil
}

// Register starts the receiver, hands the dispatcher to the host scheduler
// and starts the optional rules watcher and status server. Everything started
// here is stopped by Unregister or when ctx ends.
func (b *Bridge) Register(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return errors.New("bridge already registered")
	}

	if err := b.receiver.Start(); err != nil {
		return fmt.Errorf("start receiver: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go observeEvents(runCtx, b.events, b.eventLog)

	if b.cfg.Mapping.Watch && b.cfg.Mapping.RulesFile != "" {
		if err := b.engine.Watch(runCtx, b.cfg.Mapping.RulesFile); err != nil {
			b.log.Warn("Rules hot reload disabled", "error", err)
		}
	}

	if b.status != nil {
		errs, err := b.status.Start(runCtx)
		if err != nil {
			cancel()
			b.receiver.Stop()
			return err
		}
		b.errs = errs
	}

	b.host.Scheduler.RegisterTimer(b.dispatcher.Timer(runCtx))
	b.cancel = cancel

	b.log.Info("Bridge registered", "address", b.receiver.Addr().String(), "interval", b.cfg.Dispatcher.Interval())
	return nil
}

// Unregister stops the receiver and the status server and waits for both to
// release their sockets. A job still waiting for the host timer is dropped.
// The host timer stays registered but no longer takes jobs.
func (b *Bridge) Unregister() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.receiver.Stop()
	if b.status != nil {
		b.status.Stop()
	}

	if cancel == nil {
		return
	}
	if job, ok := b.mailbox.TakeIfSignaled(); ok && job != nil {
		b.log.Warn("Dropped pending job", "job_id", job.ID, "asset", job.Data.Name)
	}
	b.log.Info("Bridge unregistered", "superseded_jobs", b.mailbox.Dropped())
}

// Addr returns the receiver's bound address, or nil when not registered.
func (b *Bridge) Addr() net.Addr {
	return b.receiver.Addr()
}

// StatusAddr returns the status server's address, or nil when it is disabled
// or not started.
func (b *Bridge) StatusAddr() net.Addr {
	if b.status == nil {
		return nil
	}
	return b.status.Addr()
}

// Errors yields a status server failure. It is nil when the status server is
// disabled.
func (b *Bridge) Errors() <-chan error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errs
}

// Events exposes the job lifecycle bus.
func (b *Bridge) Events() *bus.Bus {
	return b.events
}

func (b *Bridge) Stats() receiver.Stats {
	return b.receiver.Stats()
}
