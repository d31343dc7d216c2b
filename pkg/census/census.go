package census

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencouncil/councilkit/pkg/logger"
	"github.com/opencouncil/councilkit/pkg/switchboard"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

// Status is the health of one resource or tenant.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Overall is the rollup of a whole run: "up" only when central and every
// tenant are up, "partial" when central is up but at least one tenant is
// down, "down" when a central resource itself is unreachable.
type Overall string

const (
	OverallUp      Overall = "up"
	OverallPartial Overall = "partial"
	OverallDown    Overall = "down"
)

// RunState is the aggregator's per-run state machine.
type RunState int32

const (
	StateIdle RunState = iota
	StateIterating
	StateDone
)

// Result is the outcome of probing one tenant.
type Result struct {
	TenantID  uuid.UUID          `json:"tenant_id"`
	Subdomain string             `json:"subdomain"`
	Status    Status             `json:"status"`
	Error     string             `json:"error,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Report is the outcome of one full run.
type Report struct {
	Central   Status        `json:"central"`
	Overall   Overall       `json:"overall"`
	Tenants   []Result      `json:"tenants"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Probe is the caller-supplied check executed under each tenant's activated
// scope: a health ping, a statistics query, anything returning optional
// numeric metrics. The probe must honor ctx, which carries the per-tenant
// timeout.
type Probe func(ctx context.Context, sc *switchboard.Scope) (map[string]float64, error)

// Config is the load-time aggregator configuration.
type Config struct {
	ProbeTimeout time.Duration `env:"CENSUS_PROBE_TIMEOUT" envDefault:"5s"` // ProbeTimeout bounds each tenant's probe so one unreachable tenant cannot stall the run.
}

// Aggregator visits every tenant in the registry, switching context in and
// out around a probe, and collects per-tenant outcomes while isolating
// per-tenant failures. It costs O(tenants) context switches, so
// callers cache its report (see Handler).
type Aggregator struct {
	registry      tenant.Registry
	pipeline      *switchboard.Pipeline
	centralChecks []func(context.Context) error
	probeTimeout  time.Duration
	log           *slog.Logger

	mu    sync.Mutex
	state RunState
}

// Option configures the aggregator.
type Option func(*Aggregator)

// WithProbeTimeout bounds each tenant's probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.probeTimeout = d
		}
	}
}

// WithLogger sets the aggregator logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an aggregator. centralChecks verify the resources the tenant
// loop depends on (the central database holding the registry, the shared
// Redis); when any of them fails, tenants are not enumerated at all: their
// identity cannot be trusted if the registry is unreachable.
func New(registry tenant.Registry, pipeline *switchboard.Pipeline, centralChecks []func(context.Context) error, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry:      registry,
		pipeline:      pipeline,
		centralChecks: centralChecks,
		probeTimeout:  5 * time.Second,
		log:           slog.Default(),
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State reports the current run state.
func (a *Aggregator) State() RunState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Run executes one full aggregation pass. Only one run may be in flight at a
// time; concurrent calls get ErrRunInProgress (callers are expected to cache
// the previous report instead of stacking runs).
func (a *Aggregator) Run(ctx context.Context, probe Probe) (*Report, error) {
	a.mu.Lock()
	if a.state == StateIterating {
		a.mu.Unlock()
		return nil, ErrRunInProgress
	}
	a.state = StateIterating
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.state = StateDone
		a.mu.Unlock()
	}()

	report := &Report{StartedAt: time.Now()}
	defer func() { report.Elapsed = time.Since(report.StartedAt) }()

	// Central resources first: if the authority for tenant identity is
	// unreachable there is no point evaluating tenants.
	for _, check := range a.centralChecks {
		if err := check(ctx); err != nil {
			a.log.ErrorContext(ctx, "central resource unreachable, skipping tenant loop",
				logger.Component("census"),
				logger.Error(err),
			)
			report.Central = StatusDown
			report.Overall = OverallDown
			return report, nil
		}
	}
	report.Central = StatusUp

	tenants, err := a.registry.List(ctx)
	if err != nil {
		report.Central = StatusDown
		report.Overall = OverallDown
		return report, nil
	}

	report.Tenants = make([]Result, 0, len(tenants))
	anyDown := false
	for _, t := range tenants {
		res := a.probeTenant(ctx, t, probe)
		if res.Status == StatusDown {
			anyDown = true
		}
		report.Tenants = append(report.Tenants, res)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	if anyDown {
		report.Overall = OverallPartial
	} else {
		report.Overall = OverallUp
	}
	return report, nil
}

// probeTenant performs one activate→probe→record→deactivate cycle. The
// deactivate is deferred and therefore unconditional: even an activation
// failure (which may have partially activated and rolled back) leaves no
// tenant pointer set before the loop moves on.
func (a *Aggregator) probeTenant(ctx context.Context, t *tenant.Tenant, probe Probe) Result {
	start := time.Now()
	res := Result{TenantID: t.ID, Subdomain: t.Subdomain, Status: StatusUp}

	sc := a.pipeline.NewScope()
	defer a.pipeline.Deactivate(ctx, sc)

	if err := a.pipeline.Activate(ctx, sc, t); err != nil {
		res.Status = StatusDown
		res.Error = err.Error()
		res.Elapsed = time.Since(start)
		a.log.WarnContext(ctx, "tenant activation failed during census",
			logger.Component("census"),
			logger.TenantID(t.ID),
			logger.Subdomain(t.Subdomain),
			logger.Error(err),
		)
		return res
	}

	metrics, err := a.runProbe(ctx, sc, probe)
	if err != nil {
		res.Status = StatusDown
		res.Error = err.Error()
	} else {
		res.Metrics = metrics
	}
	res.Elapsed = time.Since(start)
	return res
}

// runProbe executes the probe under a bounded timeout. A probe that ignores
// its context still cannot stall the run: the select abandons it at the
// deadline and records ErrProbeTimeout.
func (a *Aggregator) runProbe(ctx context.Context, sc *switchboard.Scope, probe Probe) (map[string]float64, error) {
	if probe == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	type probeResult struct {
		metrics map[string]float64
		err     error
	}

	done := make(chan probeResult, 1)
	go func() {
		metrics, err := probe(ctx, sc)
		done <- probeResult{metrics: metrics, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return nil, ErrProbeTimeout
		}
		return r.metrics, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrProbeTimeout
		}
		return nil, ctx.Err()
	}
}
