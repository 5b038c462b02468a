package weaver

import (
	"context"
	"fmt"
	"log/slog"
)

// Transformer rewrites the code of target symbols for the descriptors
// delegated to it.
type Transformer interface {
	// Name identifies the transformer in logs.
	Name() string
	// Namespace is the target-symbol namespace prefix this transformer serves.
	Namespace() string
	// Transform rewrites the code of a single target symbol.
	Transform(ctx context.Context, symbol string, code []byte) ([]byte, error)
}

// RegisterTransformer registers a transformer with the engine. Registering
// two transformers under the same name is a programmer error.
func (r *Registry) RegisterTransformer(t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transformers {
		if existing.Name() == t.Name() {
			panic(fmt.Sprintf("transformer with name '%s' already registered", t.Name()))
		}
	}
	slog.Debug("Registering transformer.", "name", t.Name(), "namespace", t.Namespace())
	r.transformers = append(r.transformers, t)
}
