package engine

// Engine is the authorization and spending-limit engine. It also owns the
// circuit breaker's admin controls and delegate management.
type Engine struct {
	env *Env
}

// New creates an Engine.
func New(env *Env) *Engine {
	return &Engine{env: env}
}

// Env returns the engine's runtime.
func (e *Engine) Env() *Env {
	return e.env
}
