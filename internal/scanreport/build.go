package scanreport

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"

	"shadowscan/internal/extractor"
	"shadowscan/internal/rules"
	"shadowscan/internal/scorer"
	"shadowscan/internal/similarity"
)

// hotspotCount is §4.8 step 6's fixed top-N.
const hotspotCount = 5

// Build assembles the five §6.4 sections from each component's
// materialized output. It never re-derives a score or a match; it
// only sorts, selects, and joins by Unit identifier.
func Build(meta Meta, units []extractor.Unit, scores []scorer.UnitScores, matches []rules.Match, clusters []similarity.Cluster, aggregates scorer.Aggregates, runway scorer.Runway) ScanReport {
	unitByID := make(map[string]extractor.Unit, len(units))
	for _, u := range units {
		unitByID[u.ID] = u
	}
	scoreByID := make(map[string]scorer.UnitScores, len(scores))
	for _, s := range scores {
		scoreByID[s.UnitID] = s
	}
	clusterOfUnit := make(map[string]string, len(units))
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			clusterOfUnit[id] = c.ID
		}
	}
	matchesByUnit := make(map[string][]rules.Match)
	for _, m := range matches {
		matchesByUnit[m.UnitID] = append(matchesByUnit[m.UnitID], m)
	}

	return ScanReport{
		Meta:     meta,
		Summary:  buildSummary(aggregates, runway),
		Hotspots: buildHotspots(scores, unitByID, matchesByUnit, clusterOfUnit, clusters),
		Clusters: buildClusters(clusters),
		Findings: buildFindings(matches, unitByID),
	}
}

func buildSummary(a scorer.Aggregates, runway scorer.Runway) Summary {
	return Summary{
		TotalUnits:           a.TotalUnits,
		ShadowUnits:          a.ShadowUnits,
		ShadowLogicDensity:   a.ShadowLogicDensity,
		AverageCognitiveLoad: roundScore(a.AverageCognitiveLoad),
		RedundancyScore:      roundScore(a.RedundancyScore * 100),
		Runway:               Runway{Months: int(math.Round(runway.Months)), InsufficientData: runway.InsufficientData},
	}
}

func buildHotspots(scores []scorer.UnitScores, unitByID map[string]extractor.Unit, matchesByUnit map[string][]rules.Match, clusterOfUnit map[string]string, clusters []similarity.Cluster) []Hotspot {
	sorted := make([]scorer.UnitScores, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CognitiveLoad > sorted[j].CognitiveLoad
	})

	var shadowOnly []scorer.UnitScores
	for _, s := range sorted {
		if s.Shadow {
			shadowOnly = append(shadowOnly, s)
		}
	}

	selected := shadowOnly
	if len(selected) < hotspotCount {
		selected = sorted
	}
	if len(selected) > hotspotCount {
		selected = selected[:hotspotCount]
	}

	clusterSuggestion := make(map[string]string, len(clusters))
	for _, c := range clusters {
		clusterSuggestion[c.ID] = c.Suggestion
	}

	hotspots := make([]Hotspot, 0, len(selected))
	for _, s := range selected {
		u := unitByID[s.UnitID]
		hotspots = append(hotspots, Hotspot{
			UnitID:         s.UnitID,
			FilePath:       u.FilePath,
			Name:           u.Name,
			Kind:           string(u.Kind),
			StartLine:      u.StartLine,
			EndLine:        u.EndLine,
			CognitiveLoad:  roundScore(s.CognitiveLoad),
			ReviewEvidence: roundScore(s.ReviewEvidence),
			Fragility:      roundScore(s.Fragility),
			Shadow:         s.Shadow,
			Why:            whyBullets(s.UnitID, matchesByUnit, clusterOfUnit, clusterSuggestion),
		})
	}
	return hotspots
}

func whyBullets(unitID string, matchesByUnit map[string][]rules.Match, clusterOfUnit map[string]string, clusterSuggestion map[string]string) []string {
	var bullets []string
	ms := append([]rules.Match(nil), matchesByUnit[unitID]...)
	rules.SortMatches(ms)
	for _, m := range ms {
		bullets = append(bullets, m.Name+": "+m.Detail)
	}
	if clusterID, ok := clusterOfUnit[unitID]; ok {
		bullets = append(bullets, "duplicates logic in cluster "+clusterSuggestion[clusterID])
	}
	return bullets
}

func buildClusters(clusters []similarity.Cluster) []ClusterSummary {
	out := make([]ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		members := append([]string(nil), c.MemberIDs...)
		sort.Strings(members)
		out = append(out, ClusterSummary{ID: c.ID, Suggestion: c.Suggestion, MemberIDs: members})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return smallestMember(out[i]) < smallestMember(out[j])
	})
	return out
}

func smallestMember(c ClusterSummary) string {
	if len(c.MemberIDs) == 0 {
		return ""
	}
	return c.MemberIDs[0]
}

func buildFindings(matches []rules.Match, unitByID map[string]extractor.Unit) []Finding {
	sorted := append([]rules.Match(nil), matches...)
	rules.SortMatches(sorted)

	findings := make([]Finding, 0, len(sorted))
	for _, m := range sorted {
		findings = append(findings, Finding{
			UnitID:   m.UnitID,
			FilePath: unitByID[m.UnitID].FilePath,
			RuleID:   m.RuleID,
			Name:     m.Name,
			Severity: string(m.Severity),
			Action:   m.Action,
			Detail:   m.Detail,
		})
	}
	return findings
}

// roundScore clamps and rounds a float score to the nearest integer in
// [0, 100], per §6.4's "reported as integers" requirement.
func roundScore(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(math.Round(v))
}

// ScanIDSeed derives a stable hex fragment from repo root and commit,
// used by the pipeline when minting a human-legible scan id prefix.
func ScanIDSeed(repoRoot, commitSHA string) string {
	sum := sha256.Sum256([]byte(repoRoot + "#" + commitSHA))
	return hex.EncodeToString(sum[:])[:8]
}
