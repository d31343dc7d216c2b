package switchboard

import (
	"context"
	"fmt"
)

// Built-in switch task identifiers, in their default order. The order is a
// dependency chain: the cache prefix and guard selection key off the tenant,
// and the settings task reads the database that the database task activated.
const (
	TaskDatabase = "database"
	TaskCache    = "cache"
	TaskGuard    = "guard"
	TaskSettings = "settings"
)

func buildTasks(order []string, deps Deps) ([]Task, error) {
	tasks := make([]Task, 0, len(order))
	for _, name := range order {
		switch name {
		case TaskDatabase:
			tasks = append(tasks, &databaseTask{deps: deps})
		case TaskCache:
			tasks = append(tasks, &cacheTask{deps: deps})
		case TaskGuard:
			tasks = append(tasks, &guardTask{deps: deps})
		case TaskSettings:
			tasks = append(tasks, &settingsTask{})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
		}
	}
	return tasks, nil
}

// databaseTask borrows the tenant's routed connection pool and points the
// scope at it. This is the task whose deactivation matters most: the borrow
// must be returned before the worker serves its next unit of work.
type databaseTask struct {
	deps Deps
}

func (t *databaseTask) Name() string { return TaskDatabase }

func (t *databaseTask) Activate(ctx context.Context, sc *Scope) error {
	h, err := t.deps.Router.Acquire(ctx, sc.tenant)
	if err != nil {
		return err
	}
	sc.db = h
	return nil
}

func (t *databaseTask) Deactivate(ctx context.Context, sc *Scope) error {
	if sc.db != nil {
		sc.db.Release()
		sc.db = nil
	}
	return nil
}

// cacheTask points the scope's cache namespace at the tenant's key prefix.
// All tenants share one Redis; the prefix is the isolation boundary.
type cacheTask struct {
	deps Deps
}

func (t *cacheTask) Name() string { return TaskCache }

func (t *cacheTask) Activate(ctx context.Context, sc *Scope) error {
	sc.cache = NewNamespace(t.deps.Cache, tenantKeyNamespace(sc.tenant.DatabaseID))
	return nil
}

func (t *cacheTask) Deactivate(ctx context.Context, sc *Scope) error {
	sc.cache = nil
	return nil
}

// guardTask wires the guard router into the scope so that Guard and
// PasswordBroker resolve against the tenant's connection. The actual store
// selection happens fresh on every Scope.Guard call.
type guardTask struct {
	deps Deps
}

func (t *guardTask) Name() string { return TaskGuard }

func (t *guardTask) Activate(ctx context.Context, sc *Scope) error {
	sc.guards = t.deps.Guards
	return nil
}

func (t *guardTask) Deactivate(ctx context.Context, sc *Scope) error {
	sc.guards = nil
	return nil
}

// settingsTask loads the tenant's settings table through the scope's active
// connection. It requires the database task to have run first.
type settingsTask struct{}

func (t *settingsTask) Name() string { return TaskSettings }

func (t *settingsTask) Activate(ctx context.Context, sc *Scope) error {
	if sc.db == nil {
		return fmt.Errorf("%w: settings task requires the database task", ErrTaskOrder)
	}

	rows, err := sc.db.DB().Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	settings := make(Settings)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sc.settings = settings
	return nil
}

func (t *settingsTask) Deactivate(ctx context.Context, sc *Scope) error {
	sc.settings = nil
	return nil
}
