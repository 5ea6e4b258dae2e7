package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/model"
)

var (
	alertsOrigin string
	alertsSince  string
	alertsFormat string
)

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().StringVar(&alertsOrigin, "origin", "", "Only show alerts involving this origin")
	alertsCmd.Flags().StringVar(&alertsSince, "since", "", "Only show alerts after this duration ago (e.g. 24h)")
	alertsCmd.Flags().StringVarP(&alertsFormat, "format", "f", "text", "Output format (text|json)")
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show credential submission alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		var alerts []model.CredentialAlert
		if alertsOrigin != "" {
			alerts, err = s.AlertsByOrigin(cmd.Context(), alertsOrigin)
		} else {
			var since time.Time
			if alertsSince != "" {
				d, perr := time.ParseDuration(alertsSince)
				if perr != nil {
					return fmt.Errorf("invalid --since duration: %w", perr)
				}
				since = time.Now().UTC().Add(-d)
			}
			alerts, err = s.CredentialAlerts(cmd.Context(), since)
		}
		if err != nil {
			return err
		}

		if alertsFormat == "json" {
			out, err := json.MarshalIndent(alerts, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts recorded.")
			return nil
		}
		for _, a := range alerts {
			indicators := ""
			if len(a.AnomalyIndicators) > 0 {
				indicators = "  [" + strings.Join(a.AnomalyIndicators, "; ") + "]"
			}
			fmt.Printf("%s  %-8s %-26s %s → %s anomaly=%.2f action=%s%s\n",
				a.DetectedAt.UTC().Format(time.RFC3339), a.Severity, a.AlertType,
				a.FormOrigin, a.ActionOrigin, a.AnomalyScore, a.UserAction, indicators)
		}
		return nil
	},
}
