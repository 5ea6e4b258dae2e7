package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Weights are the per-signal score contributions. Signals are additive
// and independent; the scorer caps the sum at 1.0.
type Weights struct {
	Homograph      float64 `yaml:"homograph"`
	Typosquat      float64 `yaml:"typosquat"`
	IPLiteral      float64 `yaml:"ip_literal"`
	SuspiciousTLD  float64 `yaml:"suspicious_tld"`
	SubdomainAbuse float64 `yaml:"subdomain_abuse"`
	HighEntropy    float64 `yaml:"high_entropy"`
	ShortDomain    float64 `yaml:"short_domain"`
}

// Bands are the risk band cutoffs:
// score < SuspiciousMin → safe, < DangerousMin → suspicious, else dangerous.
type Bands struct {
	SuspiciousMin float64 `yaml:"suspicious_min"`
	DangerousMin  float64 `yaml:"dangerous_min"`
}

// ScoringConfig holds every tunable the threat scorer reads. Loaded once
// at startup and treated as immutable; reloads swap the whole object.
type ScoringConfig struct {
	Weights            Weights  `yaml:"weights"`
	Bands              Bands    `yaml:"bands"`
	EntropyThreshold   float64  `yaml:"entropy_threshold"`
	SubdomainThreshold int      `yaml:"subdomain_threshold"`
	ShortDomainLength  int      `yaml:"short_domain_length"`
	PopularDomains     []string `yaml:"popular_domains"`
	SuspiciousTLDs     []string `yaml:"suspicious_tlds"`
}

// DefaultScoring returns the built-in scoring configuration.
func DefaultScoring() *ScoringConfig {
	return &ScoringConfig{
		Weights: Weights{
			Homograph:      0.30,
			Typosquat:      0.25,
			IPLiteral:      0.25,
			SuspiciousTLD:  0.20,
			SubdomainAbuse: 0.15,
			HighEntropy:    0.15,
			ShortDomain:    0.10,
		},
		Bands: Bands{
			SuspiciousMin: 0.2,
			DangerousMin:  0.6,
		},
		EntropyThreshold:   3.5,
		SubdomainThreshold: 3,
		ShortDomainLength:  4,
		PopularDomains:     defaultPopularDomains(),
		SuspiciousTLDs:     defaultSuspiciousTLDs(),
	}
}

// LoadScoring loads scoring configuration from a YAML file.
// Empty path falls back to ~/.sentinel/scoring.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
// YAML overwrites only the fields it specifies.
func LoadScoring(path string) (*ScoringConfig, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultScoring(), nil
		}
		path = filepath.Join(home, ".sentinel", "scoring.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultScoring(), nil
		}
		return nil, fmt.Errorf("failed to read scoring config: %w", err)
	}

	cfg := DefaultScoring()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}

	return cfg, nil
}

// SuspiciousTLD reports whether tld is on the blocklist.
func (c *ScoringConfig) SuspiciousTLD(tld string) bool {
	for _, t := range c.SuspiciousTLDs {
		if tld == t {
			return true
		}
	}
	return false
}
