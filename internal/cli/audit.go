package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/audit"
)

var (
	auditLogPath string
	auditType    string
	auditSince   string
	auditFormat  string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditShowCmd, auditVerifyCmd)
	auditCmd.PersistentFlags().StringVar(&auditLogPath, "log", "", "Path to the decision log (default ~/.sentinel/decisions.jsonl)")
	auditShowCmd.Flags().StringVar(&auditType, "type", "", "Filter by event type (navigation|submission|download)")
	auditShowCmd.Flags().StringVar(&auditSince, "since", "", "Only show decisions after this duration ago (e.g. 24h)")
	auditShowCmd.Flags().StringVarP(&auditFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the hash-chained decision log",
}

func auditPath() string {
	if auditLogPath != "" {
		return auditLogPath
	}
	return audit.DefaultPath()
}

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Replay recorded decisions as a timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{EventType: auditType}
		if auditSince != "" {
			d, err := time.ParseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("invalid --since duration: %w", err)
			}
			filter.From = time.Now().UTC().Add(-d)
		}

		result, err := audit.Replay(auditPath(), filter)
		if err != nil {
			return err
		}
		switch auditFormat {
		case "json":
			out, err := audit.FormatJSON(result)
			if err != nil {
				return err
			}
			fmt.Println(out)
		default:
			fmt.Print(audit.FormatTimeline(result))
		}
		return nil
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the decision log hash chain",
	Long:  "Exit code 0 if the chain is intact, 1 if any line was altered,\ninserted, or deleted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		result := audit.Verify(auditPath())
		if !result.Valid {
			fmt.Printf("INVALID: %s (line %d)\n", result.Error, result.ErrorLine)
			os.Exit(1)
		}
		fmt.Printf("Valid chain: %d entries.\n", result.Lines)
		return nil
	},
}
