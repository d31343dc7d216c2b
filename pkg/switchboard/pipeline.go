package switchboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/opencouncil/councilkit/pkg/dbrouter"
	"github.com/opencouncil/councilkit/pkg/guard"
	"github.com/opencouncil/councilkit/pkg/logger"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

// Task is one reversible step of context activation. Both operations must be
// idempotent: a task may see Deactivate without a prior successful Activate
// (rollback paths call speculatively) and must treat it as a no-op.
type Task interface {
	// Name identifies the task in configuration and logs.
	Name() string

	// Activate points the task's resource at the scope's tenant.
	Activate(ctx context.Context, sc *Scope) error

	// Deactivate returns the task's resource to the neutral state.
	Deactivate(ctx context.Context, sc *Scope) error
}

// Config is the load-time pipeline configuration. The task order is fixed
// configuration, not runtime-mutable state: later tasks may depend on state
// earlier tasks establish (the settings task reads the tenant database the
// database task activated).
type Config struct {
	TaskOrder []string `env:"SWITCH_TASK_ORDER" envSeparator:"," envDefault:"database,cache,guard,settings"`
}

// Deps carries the shared resources the built-in tasks and central scopes
// bind to.
type Deps struct {
	Router    *dbrouter.Router
	Guards    *guard.Router
	CentralDB DB
	Cache     redis.UniversalClient
}

// Pipeline runs the ordered switch tasks forward on activation and backward
// on deactivation. It holds no per-request state of its own; everything
// request-scoped lives on the Scope.
type Pipeline struct {
	tasks []Task
	deps  Deps
	log   *slog.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for deactivation failures.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTasks replaces the built-in task set entirely. The given order is
// used verbatim.
func WithTasks(tasks ...Task) Option {
	return func(p *Pipeline) {
		p.tasks = tasks
	}
}

// New builds a pipeline with the built-in tasks in the configured order.
func New(cfg Config, deps Deps, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		deps: deps,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.tasks == nil {
		order := cfg.TaskOrder
		if len(order) == 0 {
			order = []string{"database", "cache", "guard", "settings"}
		}
		tasks, err := buildTasks(order, deps)
		if err != nil {
			return nil, err
		}
		p.tasks = tasks
	}

	return p, nil
}

// NewScope returns an empty scope for one unit of work.
func (p *Pipeline) NewScope() *Scope {
	return &Scope{
		cacheClient:  p.deps.Cache,
		centralKeyNS: centralKeyNamespace,
	}
}

// CentralScope returns a scope bound to the central (non-tenant) context.
// No switch tasks run for central work; the central resources are fixed.
func (p *Pipeline) CentralScope() *Scope {
	return &Scope{
		mode:         modeCentral,
		guards:       p.deps.Guards,
		centralDB:    p.deps.CentralDB,
		cacheClient:  p.deps.Cache,
		centralKeyNS: centralKeyNamespace,
	}
}

// Activate establishes the tenant context on the scope by running every
// switch task in order. If any task fails, all previously-activated tasks
// are rolled back in reverse order before the error propagates, so no
// half-activated context is ever observable by subsequent code.
//
// Activating a scope that already has a context is a contract violation and
// returns ErrScopeAlreadyActive without touching the existing context.
func (p *Pipeline) Activate(ctx context.Context, sc *Scope, t *tenant.Tenant) error {
	if t == nil {
		return errors.Join(ErrActivationFailed, ErrNilTenant)
	}
	if sc.mode != modeNone {
		return fmt.Errorf("%w: refusing to switch to %q", ErrScopeAlreadyActive, t.Subdomain)
	}

	sc.tenant = t

	for _, task := range p.tasks {
		if err := task.Activate(ctx, sc); err != nil {
			p.rollback(ctx, sc, t, task.Name())
			return errors.Join(ErrActivationFailed, fmt.Errorf("task %q: %w", task.Name(), err))
		}
		sc.activated = append(sc.activated, task)
	}

	sc.mode = modeTenant
	return nil
}

// Deactivate releases the tenant context in reverse task order. It always
// runs to completion: a failing task is logged and the remaining tasks still
// deactivate, so a broken cache step can never block release of the database
// connection. Calling it twice, or on a scope that was never activated, is a
// no-op.
//
// Deactivation ignores cancellation of the caller's context: a unit of work
// that timed out must still release its context before the worker is reused.
func (p *Pipeline) Deactivate(ctx context.Context, sc *Scope) {
	if sc == nil || sc.mode == modeCentral {
		return
	}
	if len(sc.activated) == 0 && sc.mode == modeNone {
		return
	}

	ctx = context.WithoutCancel(ctx)
	t := sc.tenant

	for i := len(sc.activated) - 1; i >= 0; i-- {
		task := sc.activated[i]
		if err := task.Deactivate(ctx, sc); err != nil {
			p.log.ErrorContext(ctx, "switch task deactivation failed, continuing",
				logger.Component("switchboard"),
				logger.Task(task.Name()),
				logger.TenantID(tenantID(t)),
				logger.Error(err),
			)
		}
	}

	sc.reset()
}

// rollback deactivates the tasks that had activated before task failedTask
// failed, in reverse order, exactly once each.
func (p *Pipeline) rollback(ctx context.Context, sc *Scope, t *tenant.Tenant, failedTask string) {
	ctx = context.WithoutCancel(ctx)

	for i := len(sc.activated) - 1; i >= 0; i-- {
		task := sc.activated[i]
		if err := task.Deactivate(ctx, sc); err != nil {
			p.log.ErrorContext(ctx, "rollback deactivation failed, continuing",
				logger.Component("switchboard"),
				logger.Task(task.Name()),
				logger.TenantID(tenantID(t)),
				logger.Error(err),
			)
		}
	}

	p.log.WarnContext(ctx, "tenant context activation rolled back",
		logger.Component("switchboard"),
		logger.Task(failedTask),
		logger.TenantID(tenantID(t)),
	)

	sc.reset()
}

func tenantID(t *tenant.Tenant) any {
	if t == nil {
		return nil
	}
	return t.ID
}
