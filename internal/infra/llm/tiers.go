package llm

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Tier capability labels used by the router.
const (
	CapabilityChat   = "chat"
	CapabilityTools  = "tools"
	CapabilityVision = "vision"
	CapabilityJSON   = "json"
)

// Tier describes one model tier: a named cost/capability point.
type Tier struct {
	Name            string   `yaml:"name"`
	Model           string   `yaml:"model"`
	MaxTokens       int      `yaml:"max_tokens"`
	CostPer1KTokens float64  `yaml:"cost_per_1k_tokens"`
	Capabilities    []string `yaml:"capabilities"`
}

// Supports reports whether the tier advertises the given capability.
func (t Tier) Supports(capability string) bool {
	return slices.Contains(t.Capabilities, capability)
}

// CostEstimate returns the estimated dollar cost for a token count.
func (t Tier) CostEstimate(tokens int) float64 {
	return t.CostPer1KTokens * float64(tokens) / 1000
}

// Registry holds the configured tiers ordered cheapest to most capable.
// The ordering is the escalation ladder: Above walks toward capability,
// and the router never skips rungs when downgrading.
type Registry struct {
	tiers []Tier
}

// NewRegistry builds a registry from tiers already ordered cheapest first.
// At least one tier is required and names must be unique.
func NewRegistry(tiers []Tier) (*Registry, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("llm: registry requires at least one tier")
	}
	seen := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		if t.Name == "" || t.Model == "" {
			return nil, fmt.Errorf("llm: tier missing name or model: %+v", t)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("llm: duplicate tier name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return &Registry{tiers: slices.Clone(tiers)}, nil
}

// LoadRegistry reads a YAML tier file. Falls back to DefaultTiers when
// path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(DefaultTiers())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("llm: read tier file %q: %w", path, err)
	}

	var doc struct {
		Tiers []Tier `yaml:"tiers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("llm: parse tier file %q: %w", path, err)
	}

	return NewRegistry(doc.Tiers)
}

// ByName returns the tier with the given name.
func (r *Registry) ByName(name string) (Tier, error) {
	for _, t := range r.tiers {
		if t.Name == name {
			return t, nil
		}
	}
	return Tier{}, fmt.Errorf("llm: unknown tier %q", name)
}

// Cheapest returns the first (least capable, lowest cost) tier.
func (r *Registry) Cheapest() Tier {
	return r.tiers[0]
}

// MostCapable returns the last (highest cost) tier.
func (r *Registry) MostCapable() Tier {
	return r.tiers[len(r.tiers)-1]
}

// Above returns the next tier up the ladder from name.
// Returns false when name is already the top tier.
func (r *Registry) Above(name string) (Tier, bool) {
	for i, t := range r.tiers {
		if t.Name == name && i+1 < len(r.tiers) {
			return r.tiers[i+1], true
		}
	}
	return Tier{}, false
}

// Below returns the next tier down the ladder from name.
// Returns false when name is already the bottom tier.
func (r *Registry) Below(name string) (Tier, bool) {
	for i, t := range r.tiers {
		if t.Name == name && i > 0 {
			return r.tiers[i-1], true
		}
	}
	return Tier{}, false
}

// FirstWith returns the cheapest tier advertising the given capability.
func (r *Registry) FirstWith(capability string) (Tier, bool) {
	for _, t := range r.tiers {
		if t.Supports(capability) {
			return t, true
		}
	}
	return Tier{}, false
}

// All returns the tiers in ladder order (cheapest first).
func (r *Registry) All() []Tier {
	return slices.Clone(r.tiers)
}

// DefaultTiers is the built-in three-rung ladder used when no tier file
// is configured. Models are gateway aliases, not provider names.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:            "quick",
			Model:           "sous-quick",
			MaxTokens:       1024,
			CostPer1KTokens: 0.0002,
			Capabilities:    []string{CapabilityChat, CapabilityJSON},
		},
		{
			Name:            "standard",
			Model:           "sous-standard",
			MaxTokens:       4096,
			CostPer1KTokens: 0.003,
			Capabilities:    []string{CapabilityChat, CapabilityTools, CapabilityJSON},
		},
		{
			Name:            "deep",
			Model:           "sous-deep",
			MaxTokens:       8192,
			CostPer1KTokens: 0.015,
			Capabilities:    []string{CapabilityChat, CapabilityTools, CapabilityVision, CapabilityJSON},
		},
	}
}
