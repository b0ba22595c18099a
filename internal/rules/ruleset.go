package rules

import (
	"os"

	"gopkg.in/yaml.v3"
)

type rulesetFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRuleset reads a declarative ruleset document (§6.3) from path.
func LoadRuleset(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc rulesetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// SaveRuleset writes rules to path as a declarative YAML document.
func SaveRuleset(path string, rules []Rule) error {
	data, err := yaml.Marshal(rulesetFile{Rules: rules})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultRuleset is the Engine's fixed 15-rule set (§4.4): identifiers,
// names, severities, and suggested actions.
func DefaultRuleset() []Rule {
	return []Rule{
		{ID: "REACT-001", Name: "Render-time side effect", Language: "fel", Severity: SeverityHigh, Action: "Move the network/storage call into a useEffect with explicit dependencies."},
		{ID: "REACT-002", Name: "Incomplete reactive-effect dependencies", Language: "fel", Severity: SeverityHigh, Action: "List every referenced outer binding in the effect's dependency array, or memoize it."},
		{ID: "REACT-003", Name: "Setter called inside a loop", Language: "fel", Severity: SeverityMedium, Action: "Batch the updates and call the setter once after the loop."},
		{ID: "REACT-004", Name: "Prop used as derived state", Language: "fel", Severity: SeverityMedium, Action: "Derive the value during render instead of seeding state from a prop."},
		{ID: "REACT-005", Name: "Prop drilling via spread", Language: "fel", Severity: SeverityMedium, Action: "Introduce a context or composed component to avoid repeated prop spreads."},
		{ID: "TS-001", Name: "Type-escape-hatch density", Language: "fel", Severity: SeverityMedium, Action: "Replace `any` with a concrete or generic type."},
		{ID: "TS-002", Name: "Network call without error handling", Language: "fel", Severity: SeverityHigh, Action: "Wrap the network call in a try/catch or an error boundary."},
		{ID: "TS-003", Name: "Empty catch block", Language: "fel", Severity: SeverityHigh, Action: "Handle or log the caught error instead of discarding it."},
		{ID: "TS-004", Name: "Unguarded property chain", Language: "fel", Severity: SeverityMedium, Action: "Use optional chaining or a guard before the deep property access."},
		{ID: "CX-001", Name: "Boolean overload", Language: "fel", Severity: SeverityMedium, Action: "Extract named predicates for the compound boolean expression."},
		{ID: "CX-002", Name: "Deep nesting", Language: "fel", Severity: SeverityHigh, Action: "Extract helper functions or invert conditionals to flatten the nesting."},
		{ID: "CX-003", Name: "Unstable inline handler", Language: "fel", Severity: SeverityLow, Action: "Wrap the handler in useCallback or hoist it out of render."},
		{ID: "CX-004", Name: "Duplicate logic", Language: "fel", Severity: SeverityMedium, Action: "Extract the shared logic into a named utility."},
		{ID: "CX-005", Name: "Magic string repetition", Language: "fel", Severity: SeverityLow, Action: "Hoist the repeated literal into a named constant."},
		{ID: "CX-006", Name: "Comment-heavy ambiguous naming", Language: "fel", Severity: SeverityLow, Action: "Rename the ambiguous identifiers instead of explaining them in comments."},
	}
}
