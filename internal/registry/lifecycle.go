package registry

import (
	"context"
	"sync"

	"github.com/rzpsarthak13/jsonfield/internal/core"
)

// LifecycleHook is called synchronously when a field is registered or
// unregistered. An error from OnRegister aborts the registration.
type LifecycleHook interface {
	OnRegister(ctx context.Context, field core.Table, schema *core.Schema) error
	OnUnregister(ctx context.Context, field core.Table, schema *core.Schema) error
}

// LifecycleHookFunc adapts plain functions to LifecycleHook. Nil functions
// are no-ops.
type LifecycleHookFunc struct {
	OnRegisterFunc   func(ctx context.Context, field core.Table, schema *core.Schema) error
	OnUnregisterFunc func(ctx context.Context, field core.Table, schema *core.Schema) error
}

// OnRegister calls OnRegisterFunc if it's not nil.
func (f LifecycleHookFunc) OnRegister(ctx context.Context, field core.Table, schema *core.Schema) error {
	if f.OnRegisterFunc != nil {
		return f.OnRegisterFunc(ctx, field, schema)
	}
	return nil
}

// OnUnregister calls OnUnregisterFunc if it's not nil.
func (f LifecycleHookFunc) OnUnregister(ctx context.Context, field core.Table, schema *core.Schema) error {
	if f.OnUnregisterFunc != nil {
		return f.OnUnregisterFunc(ctx, field, schema)
	}
	return nil
}

// LifecycleManager holds the hooks run by a FieldRegistry, in registration order.
type LifecycleManager struct {
	mu    sync.RWMutex
	hooks []LifecycleHook
}

// NewLifecycleManager creates a new lifecycle manager.
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{}
}

// RegisterHook appends a hook.
func (lm *LifecycleManager) RegisterHook(hook LifecycleHook) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hooks = append(lm.hooks, hook)
}

func (lm *LifecycleManager) snapshot() []LifecycleHook {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	hooks := make([]LifecycleHook, len(lm.hooks))
	copy(hooks, lm.hooks)
	return hooks
}

// ExecuteRegisterHooks runs every OnRegister hook, stopping at the first error.
func (lm *LifecycleManager) ExecuteRegisterHooks(ctx context.Context, field core.Table, schema *core.Schema) error {
	for _, hook := range lm.snapshot() {
		if err := hook.OnRegister(ctx, field, schema); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteUnregisterHooks runs every OnUnregister hook, stopping at the first error.
func (lm *LifecycleManager) ExecuteUnregisterHooks(ctx context.Context, field core.Table, schema *core.Schema) error {
	for _, hook := range lm.snapshot() {
		if err := hook.OnUnregister(ctx, field, schema); err != nil {
			return err
		}
	}
	return nil
}

// HookCount returns the number of registered hooks.
func (lm *LifecycleManager) HookCount() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.hooks)
}
