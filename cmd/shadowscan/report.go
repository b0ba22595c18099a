package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"

	"shadowscan/internal/scanreport"
)

var reportOutPath string

var reportCmd = &cobra.Command{
	Use:   "report <scan-id>",
	Short: "Render a previously completed scan's report",
	Long: `Fetch a scan job's stored report from the cache by scan id and
render it in the requested format, including a pr-comment format
suitable for posting as a pull request review comment.

Examples:
  shadowscan report 3f9c2a1e-...
  shadowscan report 3f9c2a1e-... --format=pr-comment`,
	Args: cobra.ExactArgs(1),
	Run:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportOutPath, "out", "", "Write the rendered report to this path in addition to printing it")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	scanID := args[0]
	format := resolveOutputFormat()
	logger := newLogger(format)

	repoRoot := mustGetRepoRoot()
	c, closeCache := mustOpenCache(repoRoot, logger)
	defer closeCache()

	job, err := c.GetScanJob(scanID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching scan job %s: %v\n", scanID, err)
		os.Exit(1)
	}

	if job.ReportJSON == "" {
		fmt.Fprintf(os.Stderr, "scan %s has no report yet (status: %s, stage: %s, progress: %d%%)\n",
			scanID, job.Status, job.Stage, job.Progress)
		os.Exit(1)
	}

	var report scanreport.ScanReport
	if err := json.Unmarshal([]byte(job.ReportJSON), &report); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing stored report: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatResponse(&report, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if reportOutPath != "" {
		if err := os.WriteFile(reportOutPath, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", reportOutPath, err)
			os.Exit(1)
		}
	}
}

// prCommentTemplate renders a ScanReport as a GitHub/GitLab-flavored
// Markdown PR comment: a one-line verdict plus the top hotspots and
// duplicate clusters, so reviewers see the Engine's findings without
// leaving the diff view.
var prCommentTemplate = template.Must(template.New("pr-comment").Funcs(template.FuncMap{
	"runway": func(r scanreport.Runway) string {
		if r.InsufficientData {
			return "insufficient data"
		}
		return fmt.Sprintf("%d months", r.Months)
	},
	"pct": func(density float64) int { return int(density*100 + 0.5) },
}).Parse(`## shadowscan report

**{{.Summary.ShadowUnits}}** of **{{.Summary.TotalUnits}}** scanned units are shadow logic ({{pct .Summary.ShadowLogicDensity}}% density). Estimated runway before this becomes unmanageable: {{runway .Summary.Runway}}.
{{if .Hotspots}}
### Hotspots
{{range .Hotspots}}- **{{.Name}}** ({{.FilePath}}:{{.StartLine}}-{{.EndLine}}) — cognitive load {{.CognitiveLoad}}, review evidence {{.ReviewEvidence}}
{{range .Why}}  - {{.}}
{{end}}{{end}}{{end}}
{{if .Clusters}}### Duplicate logic
{{range .Clusters}}- {{.Suggestion}} ({{len .MemberIDs}} occurrences)
{{end}}{{end}}
{{if .Findings}}### Findings
{{range .Findings}}- **[{{.Severity}}] {{.RuleID}}** {{.Name}} — {{.FilePath}}: {{.Detail}}
{{end}}{{end}}`))

func formatPRComment(r *scanreport.ScanReport) string {
	var buf bytes.Buffer
	if err := prCommentTemplate.Execute(&buf, r); err != nil {
		return fmt.Sprintf("error rendering pr-comment: %v", err)
	}
	return buf.String()
}
