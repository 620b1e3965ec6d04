package taskbackend

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/fyrsmithlabs/vibed/internal/logging"
)

// Kind identifies a task-tracking backend.
type Kind string

const (
	// KindPlan tracks tasks as checklists inside the plan artifact.
	KindPlan Kind = Kind(config.BackendPlan)

	// KindTracker delegates task bookkeeping to an external CLI tool.
	KindTracker Kind = Kind(config.BackendTracker)
)

// Capability is the result of backend detection. Kind names the backend
// that is actually active after any fallback; Available reports whether
// the configured backend was usable; Reason explains a fallback.
type Capability struct {
	Kind      Kind
	Available bool
	Reason    string
}

// Adapter probes for the configured task backend and memoizes the
// result. Safe for concurrent use.
type Adapter struct {
	log     *logging.Logger
	cfg     config.TaskBackendConfig
	limiter *rate.Limiter

	// Injection points for tests. Production values are set by New.
	lookPath   func(file string) (string, error)
	runVersion func(ctx context.Context, path string) ([]byte, error)

	mu     sync.RWMutex
	cached *Capability
}

// New creates a backend adapter for the given configuration.
func New(log *logging.Logger, cfg config.TaskBackendConfig) *Adapter {
	return &Adapter{
		log:        log,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(cfg.ProbeInterval.Duration()), 1),
		lookPath:   exec.LookPath,
		runVersion: runVersionCommand,
	}
}

// Detect reports the active task backend.
//
// The first call probes; later calls return the memoized capability. A
// successful detection is stable for the process lifetime. An
// unavailable tracker is re-probed at most once per probe interval so
// the backend can recover without a restart.
func (a *Adapter) Detect(ctx context.Context) Capability {
	a.mu.RLock()
	cached := a.cached
	a.mu.RUnlock()
	if cached != nil && cached.Available {
		return *cached
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached != nil && (a.cached.Available || !a.limiter.Allow()) {
		return *a.cached
	}

	cap := a.probe(ctx)
	a.cached = &cap
	return cap
}

func (a *Adapter) probe(ctx context.Context) Capability {
	start := time.Now()

	if a.cfg.Backend != config.BackendTracker {
		recordProbe(ctx, probeResultPlan, time.Since(start))
		return Capability{Kind: KindPlan, Available: true}
	}

	if err := a.probeTracker(ctx); err != nil {
		a.log.Warn(ctx, "task tracker unavailable, falling back to plan backend",
			zap.String("command", a.cfg.TrackerCommand),
			zap.Error(err))
		recordProbe(ctx, probeResultFallback, time.Since(start))
		return Capability{Kind: KindPlan, Available: false, Reason: err.Error()}
	}

	a.log.Debug(ctx, "task tracker detected",
		zap.String("command", a.cfg.TrackerCommand))
	recordProbe(ctx, probeResultTracker, time.Since(start))
	return Capability{Kind: KindTracker, Available: true}
}

// probeTracker verifies the tracker CLI exists and answers a version
// query within the probe timeout.
func (a *Adapter) probeTracker(ctx context.Context) error {
	path, err := a.lookPath(a.cfg.TrackerCommand)
	if err != nil {
		return fmt.Errorf("looking up %q: %w", a.cfg.TrackerCommand, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout.Duration())
	defer cancel()

	output, err := a.runVersion(probeCtx, path)
	if err != nil {
		if probeCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s --version timed out after %s",
				a.cfg.TrackerCommand, a.cfg.ProbeTimeout.Duration())
		}
		return fmt.Errorf("%s --version failed: %w (output: %s)",
			a.cfg.TrackerCommand, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func runVersionCommand(ctx context.Context, path string) ([]byte, error) {
	return exec.CommandContext(ctx, path, "--version").CombinedOutput()
}
