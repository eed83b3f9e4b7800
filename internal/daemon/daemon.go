package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"podwatch/internal/config"
	"podwatch/internal/logging"
	"podwatch/internal/notifications"
	"podwatch/internal/workflow"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, opts workflow.RunOptions) (*workflow.Summary, error)
}

// Daemon runs the pipeline on an interval and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   Runner
	notifier notifications.Service
	interval time.Duration
	options  workflow.RunOptions

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}

	runs      atomic.Int64
	lastRun   atomic.Pointer[workflow.Summary]
	lastError atomic.Pointer[string]
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Interval     time.Duration
	LockFilePath string
	Runs         int64
	LastRun      *workflow.Summary
	LastError    string
}

// Option customizes a daemon.
type Option func(*Daemon)

// WithInterval overrides the configured run interval.
func WithInterval(interval time.Duration) Option {
	return func(d *Daemon) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithRunOptions sets the options passed to every scheduled run.
func WithRunOptions(opts workflow.RunOptions) Option {
	return func(d *Daemon) {
		d.options = opts
	}
}

// New constructs a daemon around a pipeline runner.
func New(cfg *config.Config, runner Runner, notifier notifications.Service, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and runner")
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		runner:   runner,
		notifier: notifier,
		interval: cfg.DaemonInterval(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.interval <= 0 {
		return nil, errors.New("daemon interval must be positive")
	}
	return d, nil
}

// Start acquires the daemon lock and launches the scheduling loop. The first
// run starts immediately.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(d.cfg.Paths.LockDir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another podwatch daemon instance is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.loop(loopCtx, d.done)

	d.logger.Info("podwatch daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("interval", d.interval),
	)
	return nil
}

// Stop cancels the loop, waits for an in-progress run to return, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("podwatch daemon stopped")
}

// Serve starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Serve(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

func (d *Daemon) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	summary, err := d.runner.Run(ctx, d.options)
	d.runs.Add(1)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		msg := err.Error()
		d.lastError.Store(&msg)
		logging.ErrorWithContext(d.logger, "scheduled run failed", "scheduled_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `podwatch config validate` and check the roster file"),
		)
		if notifyErr := d.notifier.NotifyError(context.WithoutCancel(ctx), err, "scheduled run"); notifyErr != nil {
			logging.WarnWithContext(d.logger, "error notification failed", "notification_failed",
				logging.Error(notifyErr),
				logging.String(logging.FieldImpact, "run failure not delivered"),
			)
		}
		return
	}
	empty := ""
	d.lastError.Store(&empty)
	d.lastRun.Store(summary)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		Interval:     d.interval,
		LockFilePath: d.lockPath,
		Runs:         d.runs.Load(),
		LastRun:      d.lastRun.Load(),
	}
	if msg := d.lastError.Load(); msg != nil {
		status.LastError = *msg
	}
	return status
}
