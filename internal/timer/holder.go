package timer

import "sync"

// Holder owns the engine of one application run. It builds the engine on
// first use and hands the same instance out until Reset.
type Holder struct {
	mu     sync.Mutex
	opts   Options
	engine *Engine
}

func NewHolder(opts Options) *Holder {
	return &Holder{opts: opts}
}

// Engine returns the held engine, creating it if needed.
func (h *Holder) Engine() *Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.engine == nil {
		h.engine = New(h.opts)
	}
	return h.engine
}

// Reset stops the held engine and discards it. The next call to Engine
// returns a fresh idle engine.
func (h *Holder) Reset() {
	h.mu.Lock()
	engine := h.engine
	h.engine = nil
	h.mu.Unlock()

	if engine != nil {
		engine.Stop()
	}
}
