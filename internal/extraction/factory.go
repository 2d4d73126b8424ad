package extraction

import (
	"fmt"
	"log/slog"
	"sync"

	"wasterescue/internal/config"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
)

// ProviderFactory creates a RowExtractor from a provider config.
type ProviderFactory func(cfg *config.ExtractorProviderConfig) (port.RowExtractor, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// NewExtractor creates a RowExtractor from a provider config using the registered factory.
func NewExtractor(cfg *config.ExtractorProviderConfig) (port.RowExtractor, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds the configured provider chain: primary, then the
// optional secondary and tertiary behind a FallbackExtractor, throttled when
// RequestsPerMinute is set.
func NewFromConfig(cfg *config.ExtractorConfig, logger *slog.Logger) (port.RowExtractor, error) {
	tiers := []*config.ExtractorProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig(), cfg.TertiaryConfig()}

	var extractors []port.RowExtractor
	var names []string
	for _, tier := range tiers {
		if tier == nil {
			continue
		}
		ex, err := NewExtractor(tier)
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, ex)
		names = append(names, tier.Provider)
	}

	var out port.RowExtractor
	if len(extractors) == 1 {
		out = extractors[0]
	} else {
		out = NewFallbackExtractor(extractors, names, logger)
	}

	if cfg.RequestsPerMinute > 0 {
		out = NewThrottled(out, cfg.RequestsPerMinute)
	}
	logging.OrDefault(logger).Info("extraction chain ready", "providers", names, "requests_per_minute", cfg.RequestsPerMinute)
	return out, nil
}
