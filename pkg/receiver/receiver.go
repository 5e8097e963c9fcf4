// Package receiver owns the datagram endpoint jobs arrive on. A background
// goroutine reads packets with a bounded wait, reassembles them into jobs and
// publishes each finished job to the mailbox.
package receiver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"mhurbridge/pkg/bus"
	"mhurbridge/pkg/config"
	"mhurbridge/pkg/protocol"
)

// Backoff bounds after a failed read. It doubles per consecutive failure and
// resets on the next good read.
const (
	minErrorBackoff = 10 * time.Millisecond
	maxErrorBackoff = time.Second
)

// Publisher accepts finished jobs. It must not block. It reports whether a
// job that was still pending got replaced.
type Publisher interface {
	Publish(job *protocol.ImportJob) bool
}

// TransportError is a socket failure other than the deliberate close done by
// Stop.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Stats counts what the receiver has seen since it was created.
type Stats struct {
	Packets   uint64
	Jobs      uint64
	Malformed uint64
	Errors    uint64
}

type Receiver struct {
	cfg    config.BridgeConfig
	out    Publisher
	events *bus.Bus
	log    *slog.Logger

	mu   sync.Mutex
	conn net.PacketConn
	done chan struct{}
	wg   sync.WaitGroup

	packets   atomic.Uint64
	jobs      atomic.Uint64
	malformed atomic.Uint64
	failures  atomic.Uint64
}

func New(cfg config.BridgeConfig, out Publisher, events *bus.Bus, log *slog.Logger) (*Receiver, error) {
	if out == nil {
		return nil, errors.New("publisher is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.PacketSize <= 0 {
		cfg.PacketSize = config.DefaultPacketSize
	}

	return &Receiver{
		cfg:    cfg,
		out:    out,
		events: events,
		log:    log.With("component", "receiver"),
	}, nil
}

// Start binds the endpoint and starts the read loop.
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return errors.New("receiver already started")
	}

	conn, err := net.ListenPacket("udp", r.cfg.Address())
	if err != nil {
		return &TransportError{Op: "listen", Err: err}
	}
	r.conn = conn
	r.done = make(chan struct{})

	r.wg.Add(1)
	go r.loop(conn, r.done)

	r.log.Info("Receiver listening", "address", conn.LocalAddr().String())
	return nil
}

// Stop closes the endpoint, which interrupts a pending read, and waits for
// the read loop to exit. Calling it again, or before Start, is a no-op.
func (r *Receiver) Stop() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	r.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			r.log.Warn("Closing receiver socket failed", "error", err)
		}
	}
	r.wg.Wait()
}

// Addr returns the bound address, or nil when the receiver is not running.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Running reports whether the endpoint is bound.
func (r *Receiver) Running() bool {
	return r.Addr() != nil
}

func (r *Receiver) Stats() Stats {
	return Stats{
		Packets:   r.packets.Load(),
		Jobs:      r.jobs.Load(),
		Malformed: r.malformed.Load(),
		Errors:    r.failures.Load(),
	}
}

func (r *Receiver) loop(conn net.PacketConn, done <-chan struct{}) {
	defer r.wg.Done()

	var framer protocol.Framer
	var backoff time.Duration
	buf := make([]byte, r.cfg.PacketSize)
	timeout := r.cfg.ReadTimeout()

	// pause waits out a failure and reports false once Stop was called.
	pause := func() bool {
		backoff = min(max(2*backoff, minErrorBackoff), maxErrorBackoff)
		select {
		case <-done:
			return false
		case <-time.After(backoff):
			return true
		}
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.transportError("set deadline", err)
			if !pause() {
				return
			}
			continue
		}

		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				r.log.Debug("Receiver stopped")
				return
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// A message never spans a read timeout.
				if pending := framer.Pending(); pending > 0 {
					r.log.Debug("Discarding partial message", "bytes", pending)
					framer.Reset()
				}
				continue
			}

			r.transportError("read", err)
			if !pause() {
				return
			}
			continue
		}

		backoff = 0
		r.packets.Add(1)
		job, done, err := framer.Feed(buf[:n])
		if !done {
			continue
		}
		if err != nil {
			r.malformed.Add(1)
			r.log.Warn("Discarding malformed message", "error", err)
			r.events.Publish(bus.Event{Type: bus.EventJobMalformed, Error: err.Error()})
			continue
		}

		r.publish(job)
	}
}

func (r *Receiver) publish(job *protocol.ImportJob) {
	log := r.log.With("job_id", job.ID)
	log.Info("Received job", "asset", job.Data.Name, "type", job.Data.Kind, "parts", len(job.Data.Parts))

	// Announce before handing over so the event precedes the import's own.
	r.events.Publish(bus.Event{
		Type:    bus.EventJobReceived,
		JobID:   job.ID,
		Asset:   job.Data.Name,
		Payload: map[string]string{"parts": strconv.Itoa(len(job.Data.Parts))},
	})

	replaced := r.out.Publish(job)
	r.jobs.Add(1)
	if replaced {
		log.Warn("Superseded a job that was not yet imported")
		r.events.Publish(bus.Event{Type: bus.EventJobSuperseded, JobID: job.ID, Asset: job.Data.Name})
	}
}

func (r *Receiver) transportError(op string, err error) {
	r.failures.Add(1)
	r.log.Warn("Receive failed", "error", &TransportError{Op: op, Err: err})
}
