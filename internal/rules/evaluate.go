package rules

import (
	"context"
	"fmt"
	"regexp"

	"shadowscan/internal/config"
	"shadowscan/internal/extractor"
	"shadowscan/internal/fel"
)

// Evaluate applies every rule in ruleset whose id has a registered
// checker against unit, re-parsing unit.Source into its own small tree
// so matchers can run AST predicates scoped to that Unit alone.
func Evaluate(ctx context.Context, unit extractor.Unit, lang fel.Language, ruleset []Rule, thresholds config.RuleThresholds) ([]Match, error) {
	parser := fel.NewParser()
	tree, err := parser.Parse(ctx, unit.Source, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	mctx := matchContext{unit: unit, root: tree.Root, source: unit.Source, thresholds: thresholds}

	var matches []Match
	for _, rule := range ruleset {
		check, ok := checkers[rule.ID]
		if !ok {
			continue
		}
		if matched, detail := check(mctx); matched {
			matches = append(matches, Match{
				UnitID:   unit.ID,
				RuleID:   rule.ID,
				Name:     rule.Name,
				Severity: rule.Severity,
				Action:   rule.Action,
				Detail:   detail,
			})
		}
	}

	SortMatches(matches)
	return matches, nil
}

var quotedStringPattern = regexp.MustCompile(`['"]([^'"]{2,})['"]`)

// EvaluateFile applies CX-005 (magic-string repetition) across every
// Unit in one file, since §4.4 scopes the repetition count to the file
// rather than to a single Unit.
func EvaluateFile(ruleset []Rule, units []extractor.Unit, thresholds config.RuleThresholds) []Match {
	var rule *Rule
	for i := range ruleset {
		if ruleset[i].ID == "CX-005" {
			rule = &ruleset[i]
			break
		}
	}
	if rule == nil || len(units) == 0 {
		return nil
	}

	counts := make(map[string]int)
	occurrencesByUnit := make(map[string]map[string]bool)
	for _, unit := range units {
		seen := make(map[string]bool)
		for _, m := range quotedStringPattern.FindAllStringSubmatch(string(unit.Source), -1) {
			literal := m[1]
			if len(literal) < thresholds.MagicStringMinLength {
				continue
			}
			counts[literal]++
			seen[literal] = true
		}
		occurrencesByUnit[unit.ID] = seen
	}

	var matches []Match
	for _, unit := range units {
		for literal := range occurrencesByUnit[unit.ID] {
			if counts[literal] >= thresholds.MagicStringMinRepeats {
				matches = append(matches, Match{
					UnitID:   unit.ID,
					RuleID:   rule.ID,
					Name:     rule.Name,
					Severity: rule.Severity,
					Action:   rule.Action,
					Detail:   fmt.Sprintf("string %q repeated %d times in the file", literal, counts[literal]),
				})
				break
			}
		}
	}
	return matches
}

// EvaluateCluster applies CX-004 (duplicate logic) for Units the
// similarity stage placed in a redundancy cluster.
func EvaluateCluster(ruleset []Rule, unitID string, clusterID string) *Match {
	if clusterID == "" {
		return nil
	}
	for _, rule := range ruleset {
		if rule.ID != "CX-004" {
			continue
		}
		return &Match{
			UnitID:   unitID,
			RuleID:   rule.ID,
			Name:     rule.Name,
			Severity: rule.Severity,
			Action:   rule.Action,
			Detail:   fmt.Sprintf("member of redundancy cluster %s", clusterID),
		}
	}
	return nil
}
