package tools

import (
	"context"
	"fmt"
	"time"

	"repolens/internal/logging"
)

// Dispatcher runs tools on behalf of the backend. It never returns an error:
// unknown tools, bad arguments, handler errors and panics all become
// failure-typed results so the session can continue.
type Dispatcher struct {
	registry *Registry
	tctx     *Context
}

// NewDispatcher binds a registry to the context whose observers it reports to.
func NewDispatcher(registry *Registry, tctx *Context) *Dispatcher {
	return &Dispatcher{registry: registry, tctx: tctx}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Invoke runs the named tool. OnInvoke fires before execution and OnResult
// after it, on every path.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (res Result) {
	if args == nil {
		args = map[string]any{}
	}
	if d.tctx.OnInvoke != nil {
		d.tctx.OnInvoke(name, args)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.ToolsWarn("tool %s panicked: %v", name, r)
			res = Failure(fmt.Sprintf("tool %s failed: internal error: %v", name, r))
		}
		elapsed := time.Since(start)
		logging.ToolsDebug("Tool %s completed in %v (error=%v)", name, elapsed, res.IsError)
		if d.tctx.OnResult != nil {
			d.tctx.OnResult(name, res, elapsed)
		}
	}()

	tool := d.registry.Get(name)
	if tool == nil {
		return Failure(fmt.Sprintf("%v: %s", ErrToolNotFound, name))
	}
	if err := validateArgs(tool, args); err != nil {
		return Failure(err.Error())
	}

	logging.ToolsDebug("Executing tool: %s", name)
	out, err := tool.Execute(ctx, args)
	if err != nil {
		return Failure(err.Error())
	}
	return Result{Content: out}
}
