package storage

import (
	"fmt"

	"github.com/Heimeroux/pyannote-api-toolkit/logger"
)

// Factory creates a Store from core config and provider-specific
// configuration. Each provider type-asserts providerCfg to its own
// config type.
type Factory func(cfg Config, providerCfg any, log *logger.Logger) (Store, error)

var factories = make(map[string]Factory)

// RegisterFactory registers a blob store factory for the given provider
// name. Implementation packages call this in an init function to make
// themselves available to New.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// New creates a Store based on the given Config. The provider field
// selects the backend; providerCfg carries backend-specific settings.
// Ensure the desired provider package has been imported (e.g.
// _ ".../storage/local") so its factory is registered.
func New(cfg Config, providerCfg any, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := log.WithComponent("storage")

	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l.Info("Initializing blob store", map[string]interface{}{"provider": cfg.Provider})
	return f(cfg, providerCfg, l)
}
