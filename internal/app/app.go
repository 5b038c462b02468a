package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/orchestrator"
	"github.com/vk/loomgate/internal/owner"
	"github.com/vk/loomgate/internal/patch"
	"github.com/vk/loomgate/internal/weaver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	engine   *weaver.Registry
	orch     *orchestrator.Orchestrator
	coremods []any
	index    *capability.StaticIndex
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, weaving
// engine, and orchestrator. Programmer errors during module registration
// (duplicate transformers, malformed patch entries) panic; the caller
// recovers and reports them as fatal startup errors.
func NewApp(outW io.Writer, cfg *Config, modules ...Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}

	engine := weaver.New()
	owners := owner.StaticTable{}
	index := capability.NewStaticIndex()
	var coremods []any
	var listeners []CoreLoadedListener

	// Single point of capability discovery: each compiled-in module is
	// type-switched here, never scattered through the subsystems.
	for _, mod := range modules {
		mod.Register(engine)
		if s, ok := mod.(CoremodSupplier); ok {
			coremods = append(coremods, any(s.Coremod()))
		}
		if s, ok := mod.(ContainerSupplier); ok {
			index.Add(s.Container(), s.Markers()...)
		}
		if c, ok := mod.(NamespaceClaimer); ok {
			for prefix, modid := range c.NamespaceClaims() {
				if prev, exists := owners[prefix]; exists && prev != modid {
					logger.Warn("Namespace prefix claimed twice, keeping first claim.", "prefix", prefix, "kept", prev, "ignored", modid)
					continue
				}
				owners[prefix] = modid
			}
		}
		if l, ok := mod.(CoreLoadedListener); ok {
			listeners = append(listeners, l)
		}
	}
	logger.Debug("All compiled-in modules registered.", "count", len(modules))

	var notify func(ctx context.Context)
	if len(listeners) > 0 {
		notify = func(ctx context.Context) {
			for _, l := range listeners {
				l.CoreLoaded(ctx)
			}
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		Engine:  engine,
		Patches: patch.NewTable(patch.DefaultEntries(notify)),
		Owners:  owners,
	})
	logger.Debug("Orchestrator constructed.", "session", orch.SessionID())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		engine:   engine,
		orch:     orch,
		coremods: coremods,
		index:    index,
	}
}

// Engine returns the application's weaving engine. This is primarily for testing.
func (a *App) Engine() *weaver.Registry {
	return a.engine
}

// Orchestrator returns the application's orchestrator. This is primarily for testing.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}
