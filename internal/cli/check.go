package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/scorer"
)

var checkFormat string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <url> [url...]",
	Short: "Score URLs for phishing signals",
	Long: "Runs the threat scorer against one or more URLs and explains every\n" +
		"triggered signal.\n\n" +
		"Exit code 0 if all URLs are safe, 1 if any is suspicious or dangerous.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadScoring()
	if err != nil {
		return fmt.Errorf("load scoring config: %w", err)
	}

	flagged := false
	var analyses []scorer.Analysis
	for _, raw := range args {
		a := scorer.Analyze(raw, cfg)
		analyses = append(analyses, a)
		if a.Band != model.BandSafe {
			flagged = true
		}
	}

	switch checkFormat {
	case "json":
		out, err := json.MarshalIndent(analyses, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		for _, a := range analyses {
			printAnalysis(a)
		}
	}

	if flagged {
		os.Exit(1)
	}
	return nil
}

func printAnalysis(a scorer.Analysis) {
	fmt.Printf("%s\n", a.URL)
	fmt.Printf("  band:  %s (score %.2f, confidence %.2f)\n", strings.ToUpper(string(a.Band)), a.Score, a.Confidence)
	if a.Malformed {
		fmt.Println("  note:  malformed URL, treated as safe")
	}
	if a.ZeroRisk {
		fmt.Println("  note:  no remote destination")
	}
	if a.ClosestDomain != "" && a.EditDistance >= 0 {
		fmt.Printf("  near:  %s (edit distance %d)\n", a.ClosestDomain, a.EditDistance)
	}
	for _, reason := range a.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Println()
}
