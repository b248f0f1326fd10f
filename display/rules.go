// Package display loads the display rules that customize how SHACL-derived
// form fields are labeled, ordered and shown.
package display

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Target selects the entities a rule applies to.
type Target struct {
	// Class is the rdf:type IRI of the entity.
	Class string `yaml:"class" json:"class"`

	// Shape optionally narrows the rule to entities validated by one node shape.
	Shape string `yaml:"shape,omitempty" json:"shape,omitempty"`
}

// SubShapeRule overrides the display of one predicate when its object is
// validated by a specific node shape (e.g. author vs editor roles sharing
// pro:isDocumentContextFor).
type SubShapeRule struct {
	Shape             string `yaml:"shape" json:"shape"`
	DisplayName       string `yaml:"displayName,omitempty" json:"display_name,omitempty"`
	ShouldBeDisplayed *bool  `yaml:"shouldBeDisplayed,omitempty" json:"should_be_displayed,omitempty"`
	OrderedBy         string `yaml:"orderedBy,omitempty" json:"ordered_by,omitempty"`
}

// PropertyRule overrides the display of one predicate.
type PropertyRule struct {
	Property          string         `yaml:"property" json:"property"`
	DisplayName       string         `yaml:"displayName,omitempty" json:"display_name,omitempty"`
	ShouldBeDisplayed *bool          `yaml:"shouldBeDisplayed,omitempty" json:"should_be_displayed,omitempty"`
	InputType         string         `yaml:"inputType,omitempty" json:"input_type,omitempty"`
	OrderedBy         string         `yaml:"orderedBy,omitempty" json:"ordered_by,omitempty"`
	DisplayRules      []SubShapeRule `yaml:"displayRules,omitempty" json:"display_rules,omitempty"`
}

// Visible reports whether the property should be shown. Unset means shown.
func (p PropertyRule) Visible() bool {
	return p.ShouldBeDisplayed == nil || *p.ShouldBeDisplayed
}

// SubShape returns the override for a node shape, if any.
func (p PropertyRule) SubShape(shape string) (SubShapeRule, bool) {
	if shape == "" {
		return SubShapeRule{}, false
	}
	for _, r := range p.DisplayRules {
		if r.Shape == shape {
			return r, true
		}
	}
	return SubShapeRule{}, false
}

// Rule maps an entity class (and optionally a shape) to an ordered list of
// property display overrides.
type Rule struct {
	Target            Target         `yaml:"target" json:"target"`
	Priority          int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	DisplayName       string         `yaml:"displayName,omitempty" json:"display_name,omitempty"`
	ShouldBeDisplayed *bool          `yaml:"shouldBeDisplayed,omitempty" json:"should_be_displayed,omitempty"`
	DisplayProperties []PropertyRule `yaml:"displayProperties,omitempty" json:"display_properties,omitempty"`
}

// Property returns the override for a predicate, if any.
func (r *Rule) Property(predicate string) (PropertyRule, bool) {
	for _, p := range r.DisplayProperties {
		if p.Property == predicate {
			return p, true
		}
	}
	return PropertyRule{}, false
}

// Rules is a loaded display-rule document.
type Rules struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Load reads display rules from a YAML file.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read display rules: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes and validates a display-rule document.
func Parse(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse display rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate checks that every rule has a target class and every property
// override names a predicate.
func (r *Rules) Validate() error {
	for i, rule := range r.Rules {
		if rule.Target.Class == "" {
			return fmt.Errorf("rules[%d].target.class is required", i)
		}
		for j, p := range rule.DisplayProperties {
			if p.Property == "" {
				return fmt.Errorf("rules[%d].displayProperties[%d].property is required", i, j)
			}
			for k, sub := range p.DisplayRules {
				if sub.Shape == "" {
					return fmt.Errorf("rules[%d].displayProperties[%d].displayRules[%d].shape is required", i, j, k)
				}
			}
		}
	}
	return nil
}

// Match returns the rule for an entity class and shape. A rule targeting the
// exact shape beats a class-only rule; among equals the lowest priority wins,
// then document order. A rule for a different shape never matches.
func (r *Rules) Match(class, shape string) (*Rule, bool) {
	if r == nil {
		return nil, false
	}

	type candidate struct {
		rule     *Rule
		shapeHit bool
		position int
	}
	var candidates []candidate
	for i := range r.Rules {
		rule := &r.Rules[i]
		if rule.Target.Class != class {
			continue
		}
		switch {
		case rule.Target.Shape == "":
			candidates = append(candidates, candidate{rule: rule, position: i})
		case rule.Target.Shape == shape:
			candidates = append(candidates, candidate{rule: rule, shapeHit: true, position: i})
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.shapeHit != b.shapeHit {
			return a.shapeHit
		}
		if a.rule.Priority != b.rule.Priority {
			return a.rule.Priority < b.rule.Priority
		}
		return a.position < b.position
	})
	return candidates[0].rule, true
}

// PropertyOrder returns the predicates in display order for a class/shape.
func (r *Rules) PropertyOrder(class, shape string) []string {
	rule, ok := r.Match(class, shape)
	if !ok {
		return nil
	}
	order := make([]string, 0, len(rule.DisplayProperties))
	for _, p := range rule.DisplayProperties {
		order = append(order, p.Property)
	}
	return order
}

// ClassDisplayName returns the configured label of a class/shape, or "".
func (r *Rules) ClassDisplayName(class, shape string) string {
	rule, ok := r.Match(class, shape)
	if !ok {
		return ""
	}
	return rule.DisplayName
}

// ClassPriority returns the priority of the rule matching the class/shape and
// whether one matched. Used to pick the main type of multi-typed entities.
func (r *Rules) ClassPriority(class, shape string) (int, bool) {
	rule, ok := r.Match(class, shape)
	if !ok {
		return 0, false
	}
	return rule.Priority, true
}

// Visible reports whether entities of the class/shape should be shown.
func (r *Rules) Visible(class, shape string) bool {
	rule, ok := r.Match(class, shape)
	if !ok {
		return true
	}
	return rule.ShouldBeDisplayed == nil || *rule.ShouldBeDisplayed
}
