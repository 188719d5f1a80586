package routing

import (
	"errors"
	"strings"

	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/topic"
)

const component = "routing"

// ErrNoProviders means no provider has credentials configured at all.
var ErrNoProviders = errors.New("no providers configured")

// Decision names the provider and model to call for one request.
type Decision struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Router maps (question, language, complexity, follow-up status) to a
// provider. The nominal pick always degrades to whichever provider is
// actually configured, so Select is total whenever at least one
// provider has credentials.
type Router struct {
	cfg *config.Config
}

func NewRouter(cfg *config.Config) *Router {
	return &Router{cfg: cfg}
}

// Select picks the provider and model for a request. pref, when
// non-nil, is an explicit user choice and wins outright (still subject
// to credential availability).
func (r *Router) Select(question, language, complexity string, isFollowUp bool, pref *Decision) (Decision, error) {
	available := r.cfg.ConfiguredProviders()
	if len(available) == 0 {
		return Decision{}, ErrNoProviders
	}

	name, reason := r.pick(question, language, complexity, isFollowUp, pref)

	if !contains(available, name) {
		fallback := r.cfg.Routing.DefaultProvider
		if !contains(available, fallback) {
			fallback = available[0]
		}
		logger.WarnCF(component, "Preferred provider not configured, falling back", map[string]interface{}{
			"wanted":   name,
			"fallback": fallback,
		})
		name = fallback
	}

	decision := r.decisionFor(name)
	if pref != nil && pref.Model != "" && pref.Provider == name {
		decision.Model = pref.Model
	}

	logger.DebugCF(component, "Provider selected", map[string]interface{}{
		"provider":   decision.Provider,
		"model":      decision.Model,
		"reason":     reason,
		"complexity": complexity,
		"language":   language,
	})
	return decision, nil
}

// pick applies the precedence rules without regard to availability.
func (r *Router) pick(question, language, complexity string, isFollowUp bool, pref *Decision) (string, string) {
	routing := r.cfg.Routing

	if pref != nil && pref.Provider != "" {
		return pref.Provider, "user_preference"
	}
	if r.isMultilingual(language) || topic.HasDevanagari(question) {
		return routing.MultilingualProvider, "multilingual"
	}
	if isFollowUp || complexity == topic.ComplexityMedium {
		return routing.ContextProvider, "context"
	}
	if complexity == topic.ComplexitySimple {
		return routing.FastProvider, "fast"
	}
	if complexity == topic.ComplexityComplex {
		return routing.ContextProvider, "complex"
	}
	return routing.ContextProvider, "default"
}

func (r *Router) isMultilingual(language string) bool {
	for _, lang := range r.cfg.Routing.MultilingualLangs {
		if strings.EqualFold(lang, language) {
			return true
		}
	}
	return false
}

func (r *Router) decisionFor(name string) Decision {
	pc, _ := r.cfg.Provider(name)
	return Decision{Provider: name, Model: pc.Model}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
