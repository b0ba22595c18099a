package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"shadowscan/internal/scanreport"
)

// OutputFormat is the rendering mode shared by every subcommand.
type OutputFormat string

const (
	FormatJSON      OutputFormat = "json"
	FormatHuman     OutputFormat = "human"
	FormatPRComment OutputFormat = "pr-comment"
)

// FormatResponse renders v in the requested format.
func FormatResponse(v interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(v)
	case FormatHuman:
		return formatHuman(v)
	case FormatPRComment:
		report, ok := v.(*scanreport.ScanReport)
		if !ok {
			return "", fmt.Errorf("pr-comment format is only supported for scan reports")
		}
		return formatPRComment(report), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatHuman(v interface{}) (string, error) {
	switch resp := v.(type) {
	case *scanreport.ScanReport:
		return formatScanReportHuman(resp), nil
	case *cacheStatsResponseCLI:
		return formatCacheStatsHuman(resp), nil
	case *cacheGCResponseCLI:
		return formatCacheGCHuman(resp), nil
	default:
		return formatJSON(v)
	}
}

func formatScanReportHuman(r *scanreport.ScanReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "shadowscan report — %s\n", r.Meta.ScanID)
	fmt.Fprintf(&b, "  repo:     %s\n", r.Meta.RepoRoot)
	if r.Meta.CommitSHA != "" {
		fmt.Fprintf(&b, "  commit:   %s (%s)\n", r.Meta.CommitSHA, r.Meta.Branch)
	}
	fmt.Fprintf(&b, "  kind:     %s\n", r.Meta.Kind)
	fmt.Fprintln(&b, strings.Repeat("─", 60))

	fmt.Fprintln(&b, "Summary")
	fmt.Fprintf(&b, "  units scanned:       %d\n", r.Summary.TotalUnits)
	fmt.Fprintf(&b, "  shadow units:        %d\n", r.Summary.ShadowUnits)
	fmt.Fprintf(&b, "  shadow logic density: %.2f\n", r.Summary.ShadowLogicDensity)
	fmt.Fprintf(&b, "  avg cognitive load:  %d\n", r.Summary.AverageCognitiveLoad)
	fmt.Fprintf(&b, "  redundancy score:    %d\n", r.Summary.RedundancyScore)
	if r.Summary.Runway.InsufficientData {
		fmt.Fprintln(&b, "  runway:              insufficient data")
	} else {
		fmt.Fprintf(&b, "  runway:              %d months\n", r.Summary.Runway.Months)
	}

	if len(r.Hotspots) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Hotspots")
		for _, h := range r.Hotspots {
			fmt.Fprintf(&b, "  [%s] %s (%s:%d-%d)\n", boolMark(h.Shadow), h.Name, h.FilePath, h.StartLine, h.EndLine)
			fmt.Fprintf(&b, "      cognitive_load=%d review_evidence=%d fragility=%d\n", h.CognitiveLoad, h.ReviewEvidence, h.Fragility)
			for _, why := range h.Why {
				fmt.Fprintf(&b, "      - %s\n", why)
			}
		}
	}

	if len(r.Clusters) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Duplicate-logic clusters")
		for _, c := range r.Clusters {
			fmt.Fprintf(&b, "  %s (%d members): %s\n", c.ID, len(c.MemberIDs), c.Suggestion)
		}
	}

	if len(r.Findings) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Findings")
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "  [%s] %s — %s:%s\n", f.Severity, f.RuleID, f.Name, f.FilePath)
			fmt.Fprintf(&b, "      %s\n", f.Detail)
		}
	}

	if len(r.Meta.Warnings) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Warnings")
		for _, w := range r.Meta.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}

func boolMark(shadow bool) string {
	if shadow {
		return "shadow"
	}
	return "clean"
}
