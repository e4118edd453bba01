// Package answertype assigns the expected answer type of a question.
package answertype

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/aqqu/pkg/types"
)

// Identifier sets the target type of a query in place.
type Identifier interface {
	IdentifyTarget(ctx context.Context, q *types.Query) error
}

// Rule assigns an answer type to questions matching Pattern.
type Rule struct {
	Pattern     string                `yaml:"pattern"`
	Class       types.AnswerTypeClass `yaml:"class"`
	TargetTypes []string              `yaml:"target_types,omitempty"`
	Count       bool                  `yaml:"count,omitempty"`

	re *regexp.Regexp
}

// RuleSet is the YAML document holding rules.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules cover the common English interrogatives.
var DefaultRules = []Rule{
	{Pattern: `^how (many|much)\b`, Class: types.AnswerClassCount, Count: true},
	{Pattern: `^(when\b|(in )?what (year|date|day)\b)`, Class: types.AnswerClassDate, TargetTypes: []string{"type.datetime"}},
	{Pattern: `^(who|whom)\b`, Class: types.AnswerClassEntity, TargetTypes: []string{"people.person"}},
	{Pattern: `^where\b`, Class: types.AnswerClassEntity, TargetTypes: []string{"location.location"}},
	{Pattern: `^how (tall|long|big|old|far|high)\b`, Class: types.AnswerClassValue},
	{Pattern: `^(what|which|whose|name)\b`, Class: types.AnswerClassEntity},
}

// RuleIdentifier assigns the type of the first rule whose pattern matches the
// normalized question text. Questions matching no rule get no type.
type RuleIdentifier struct {
	rules []Rule
}

// NewRuleIdentifier compiles rules.
func NewRuleIdentifier(rules []Rule) (*RuleIdentifier, error) {
	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid answer type rule %d %q: %w", i, r.Pattern, err)
		}
		r.re = re
		compiled[i] = r
	}
	return &RuleIdentifier{rules: compiled}, nil
}

// LoadRules reads a YAML rule set.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answer type rules: %w", err)
	}
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse answer type rules %s: %w", path, err)
	}
	return set.Rules, nil
}

// IdentifyTarget implements Identifier.
func (r *RuleIdentifier) IdentifyTarget(ctx context.Context, q *types.Query) error {
	for _, rule := range r.rules {
		if !rule.re.MatchString(q.Text()) {
			continue
		}
		if err := q.SetTargetType(&types.AnswerType{Class: rule.Class, TargetTypes: rule.TargetTypes}); err != nil {
			return err
		}
		if rule.Count {
			return q.SetCountQuery(true)
		}
		return nil
	}
	return q.SetTargetType(nil)
}
