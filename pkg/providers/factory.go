package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dotsetgreg/dotchat/pkg/config"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type providerFactory struct {
	build    func(pc config.ProviderConfig) (StreamingProvider, error)
	validate func(pc config.ProviderConfig) error
}

var (
	factoryMu       sync.RWMutex
	factories       = map[string]providerFactory{}
	registrationErr error
)

// RegisterFactory wires a named provider implementation. Called from
// per-provider init functions.
func RegisterFactory(name string, build func(pc config.ProviderConfig) (StreamingProvider, error), validate func(pc config.ProviderConfig) error) {
	name = strings.ToLower(strings.TrimSpace(name))
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if name == "" {
		registrationErr = errors.Join(registrationErr, fmt.Errorf("providers: factory name is required"))
		return
	}
	if build == nil {
		registrationErr = errors.Join(registrationErr, fmt.Errorf("providers: factory build func is required"))
		return
	}
	factories[name] = providerFactory{build: build, validate: validate}
}

// SupportedProviders lists registered provider names, sorted.
func SupportedProviders() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateProvider builds one named provider from its config block.
func CreateProvider(name string, pc config.ProviderConfig) (StreamingProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	factoryMu.RLock()
	if registrationErr != nil {
		err := registrationErr
		factoryMu.RUnlock()
		return nil, fmt.Errorf("provider registration failed: %w", err)
	}
	factory, ok := factories[name]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q: supported providers are %s", name, strings.Join(SupportedProviders(), ", "))
	}

	if factory.validate != nil {
		if err := factory.validate(pc); err != nil {
			return nil, err
		}
	}
	return factory.build(pc)
}

// Registry holds the providers that could be built from config,
// keyed by name.
type Registry struct {
	providers map[string]StreamingProvider
}

// NewRegistry builds every configured provider. Providers without
// credentials are skipped, not errors; an empty registry is valid
// (the router reports ErrNoProviders downstream).
func NewRegistry(cfg *config.Config) (*Registry, error) {
	reg := &Registry{providers: map[string]StreamingProvider{}}
	for _, name := range cfg.ConfiguredProviders() {
		pc, ok := cfg.Provider(name)
		if !ok {
			continue
		}
		p, err := CreateProvider(name, pc)
		if err != nil {
			return nil, fmt.Errorf("build provider %s: %w", name, err)
		}
		reg.providers[name] = p
	}
	return reg, nil
}

// Register adds or replaces a provider under the given name. Useful
// for custom providers and test doubles.
func (r *Registry) Register(name string, p StreamingProvider) {
	if r.providers == nil {
		r.providers = map[string]StreamingProvider{}
	}
	r.providers[strings.ToLower(strings.TrimSpace(name))] = p
}

// Get returns the named provider, or false if it was not configured.
func (r *Registry) Get(name string) (StreamingProvider, bool) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names lists configured providers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many providers are configured.
func (r *Registry) Len() int {
	return len(r.providers)
}

func validateAPIKey(name string) func(pc config.ProviderConfig) error {
	return func(pc config.ProviderConfig) error {
		if strings.TrimSpace(pc.APIKey) == "" {
			return fmt.Errorf("%s API key is not configured", name)
		}
		return nil
	}
}

func buildChatCompletions(name string) func(pc config.ProviderConfig) (StreamingProvider, error) {
	return func(pc config.ProviderConfig) (StreamingProvider, error) {
		auth := NewAPIKeyAuth(NewStaticTokenSource(pc.APIKey, name+" api key"))
		return newChatCompletionsProvider(name, pc.APIBase, pc.Model, pc.Proxy, auth)
	}
}
