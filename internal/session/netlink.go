package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"remsync/internal/logging"
)

// USBWatcher listens for udev netlink events and nudges the presence
// monitor when a network interface appears. The tablet exposes a USB
// ethernet gadget on plug-in, so an add event on the net subsystem is a
// cheap hint that a probe is worth running early.
type USBWatcher struct {
	monitor *Monitor
	logger  *slog.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewUSBWatcher creates a watcher that triggers immediate presence probes
// on USB network interface arrival.
func NewUSBWatcher(monitor *Monitor, logger *slog.Logger) *USBWatcher {
	if monitor == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &USBWatcher{
		monitor: monitor,
		logger:  logging.NewComponentLogger(logger, "usb-watcher"),
	}
}

// Start begins listening for udev netlink events. A failed netlink connect
// is non-fatal: presence detection falls back to polling alone.
func (w *USBWatcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("netlink connect failed, relying on poll-only presence detection",
			logging.Error(err))
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.watchLoop(ctx, quit)

	w.logger.Info("usb watcher started")
	return nil
}

// Stop shuts down the watcher.
func (w *USBWatcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
}

// Running reports whether the watcher is active.
func (w *USBWatcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *USBWatcher) watchLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildNetMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.logger.Debug("network interface appeared, probing device",
				logging.String("interface", uevent.Env["INTERFACE"]),
				logging.String("action", string(uevent.Action)))
			w.monitor.Nudge()
		case err := <-errs:
			w.logger.Warn("netlink watcher error", logging.Error(err))
		}
	}
}

// buildNetMatcher matches network interface arrival: SUBSYSTEM=net,
// ACTION=add.
func buildNetMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "net",
		},
	})
	return rules
}
