package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/model"
)

var (
	historySince  string
	historyRule   string
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only show threats after this duration ago (e.g. 24h, 7d as 168h)")
	historyCmd.Flags().StringVar(&historyRule, "rule", "", "Filter by rule name")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the threat history",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		var records []model.ThreatRecord
		if historyRule != "" {
			records, err = s.ThreatsByRule(cmd.Context(), historyRule)
		} else {
			var since time.Time
			if historySince != "" {
				d, perr := time.ParseDuration(historySince)
				if perr != nil {
					return fmt.Errorf("invalid --since duration: %w", perr)
				}
				since = time.Now().UTC().Add(-d)
			}
			records, err = s.ThreatHistory(cmd.Context(), since)
		}
		if err != nil {
			return err
		}

		if historyFormat == "json" {
			out, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		if len(records) == 0 {
			fmt.Println("No threats recorded.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  %-8s %-18s %-50s rule=%s\n",
				r.DetectedAt.UTC().Format(time.RFC3339), r.Severity, r.ActionTaken,
				truncateStr(r.URL, 50), r.RuleName)
		}
		return nil
	},
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
