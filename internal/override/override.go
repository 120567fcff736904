// Package override implements deterministic, entity-triggered response
// rules that bypass retrieval and generation. Rules are loaded once at
// startup and read-only afterwards.
package override

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps named-entity phrases to persona responses. When the input
// also mentions one of AlsoMentions, the rule may answer from
// AlsoResponses instead, with probability AlsoChance.
type Rule struct {
	Match         []string `yaml:"match"`
	Responses     []string `yaml:"responses"`
	AlsoMentions  []string `yaml:"also_mentions,omitempty"`
	AlsoResponses []string `yaml:"also_responses,omitempty"`
	AlsoChance    float64  `yaml:"also_chance,omitempty"`
}

// RuleSet maps persona name to its override rules.
type RuleSet map[string][]Rule

// Load reads a rule set from a YAML file.
func Load(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs RuleSet) validate() error {
	for name, rules := range rs {
		for i, r := range rules {
			if len(r.Match) == 0 {
				return fmt.Errorf("overrides for %s: rule %d has no match phrases", name, i)
			}
			if len(r.Responses) == 0 {
				return fmt.Errorf("overrides for %s: rule %d has no responses", name, i)
			}
			if len(r.AlsoMentions) > 0 && len(r.AlsoResponses) == 0 {
				return fmt.Errorf("overrides for %s: rule %d has also_mentions but no also_responses", name, i)
			}
		}
	}
	return nil
}

// Respond checks the rules for the persona against the input.
// Matching is a case-insensitive substring test over the raw text,
// checked in rule order; the first matching rule wins. The response is
// picked by the supplied random source.
func (rs RuleSet) Respond(personaName, input string, rng *rand.Rand) (string, bool) {
	lower := strings.ToLower(input)
	for _, rule := range rs[personaName] {
		if !containsAny(lower, rule.Match) {
			continue
		}
		if len(rule.AlsoResponses) > 0 && containsAny(lower, rule.AlsoMentions) &&
			rng.Float64() < rule.AlsoChance {
			return pick(rng, rule.AlsoResponses), true
		}
		return pick(rng, rule.Responses), true
	}
	return "", false
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func pick(rng *rand.Rand, responses []string) string {
	return responses[rng.Intn(len(responses))]
}
