package botclient

import (
	"fmt"
	"slices"
)

// Selector drives provider and model selection against a fetched
// BotConfig. It enforces the backend's invariants locally: a provider
// must be marked available before it can be selected, and a model must
// belong to the selected provider's model set.
type Selector struct {
	config   *BotConfig
	provider string
	model    string
	onChange func(provider, model string)
}

// NewSelector creates a selector over cfg. No provider is selected
// initially; use SelectProvider, typically with cfg.DefaultProvider.
func NewSelector(cfg *BotConfig) *Selector {
	return &Selector{config: cfg}
}

// OnChange registers a callback fired after every successful selection
// change. It is never fired for a rejected selection.
func (s *Selector) OnChange(fn func(provider, model string)) {
	s.onChange = fn
}

// SelectProvider switches to the named provider and resets the model
// to the provider's default. Unknown and unavailable providers are
// rejected.
func (s *Selector) SelectProvider(name string) error {
	info, ok := s.config.AvailableProviders[name]
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	if !info.Available {
		return fmt.Errorf("provider %q is not available", name)
	}

	s.provider = name
	s.model = info.DefaultModel
	s.fireChange()
	return nil
}

// SelectModel switches to the named model on the current provider. An
// empty name falls back to the provider default; any other name must
// be in the provider's model set.
func (s *Selector) SelectModel(name string) error {
	if s.provider == "" {
		return fmt.Errorf("no provider selected")
	}
	info := s.config.AvailableProviders[s.provider]

	if name == "" {
		name = info.DefaultModel
	} else if !slices.Contains(info.Models, name) {
		return fmt.Errorf("model %q is not offered by provider %q", name, s.provider)
	}

	s.model = name
	s.fireChange()
	return nil
}

// Provider returns the selected provider name, or "" if none.
func (s *Selector) Provider() string {
	return s.provider
}

// Model returns the selected model, or "" if none.
func (s *Selector) Model() string {
	return s.model
}

func (s *Selector) fireChange() {
	if s.onChange != nil {
		s.onChange(s.provider, s.model)
	}
}
