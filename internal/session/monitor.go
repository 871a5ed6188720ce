package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"remsync/internal/logging"
)

// DefaultPollInterval is the presence probe cadence when none is configured.
const DefaultPollInterval = 5 * time.Second

// Prober answers whether the device currently responds on its address.
type Prober interface {
	IsReachable(ctx context.Context) bool
	Address() string
}

// MonitorOptions configures a presence monitor.
type MonitorOptions struct {
	Model        string
	PollInterval time.Duration
	Logger       *slog.Logger
	OnAttach     func(Session)
	OnDetach     func(Session)
}

// Monitor polls device reachability and reports attach and detach
// transitions. Probes can be paused while a transfer holds the device and
// nudged for an immediate check.
type Monitor struct {
	prober   Prober
	model    string
	interval time.Duration
	logger   *slog.Logger
	onAttach func(Session)
	onDetach func(Session)

	nudge chan struct{}

	mu      sync.Mutex
	current *Session
	paused  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMonitor builds a presence monitor around a reachability prober.
func NewMonitor(prober Prober, opts MonitorOptions) *Monitor {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		prober:   prober,
		model:    opts.Model,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "presence"),
		onAttach: opts.OnAttach,
		onDetach: opts.OnDetach,
		nudge:    make(chan struct{}, 1),
	}
}

// Start launches the polling loop. It probes once immediately.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)
}

// Stop terminates the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Pause suspends probing, typically for the duration of a transfer. The
// current session, if any, is retained.
func (m *Monitor) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Resume re-enables probing after a Pause and schedules an immediate probe.
func (m *Monitor) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.Nudge()
}

// Nudge requests an immediate probe without waiting for the next tick.
// Duplicate nudges coalesce.
func (m *Monitor) Nudge() {
	select {
	case m.nudge <- struct{}{}:
	default:
	}
}

// Current returns the active session, if the device is attached.
func (m *Monitor) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		case <-m.nudge:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	m.mu.Lock()
	if m.paused {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	reachable := m.prober.IsReachable(ctx)

	m.mu.Lock()
	var attached, detached *Session
	switch {
	case reachable && m.current == nil:
		created := New(m.prober.Address(), m.model)
		m.current = &created
		attached = &created
	case !reachable && m.current != nil:
		ended := *m.current
		m.current = nil
		detached = &ended
	}
	m.mu.Unlock()

	if attached != nil {
		m.logger.Info("device attached",
			logging.String("address", attached.Address),
			logging.String("session_id", attached.ID.String()))
		if m.onAttach != nil {
			m.onAttach(*attached)
		}
	}
	if detached != nil {
		m.logger.Info("device detached",
			logging.String("address", detached.Address),
			logging.String("session_id", detached.ID.String()),
			logging.Duration("session_age", time.Since(detached.StartedAt)))
		if m.onDetach != nil {
			m.onDetach(*detached)
		}
	}
}
