package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sweepThreatsOlderThan string
	sweepVacuum           bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepThreatsOlderThan, "threats-older-than", "", "Also delete threat history older than this duration (e.g. 2160h for 90 days)")
	sweepCmd.Flags().BoolVar(&sweepVacuum, "vacuum", false, "Reclaim file space after sweeping")
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired policies and relationships",
	Long: "Removes rows whose expiry has passed. The sweep is idempotent and\n" +
		"safe to run while a browser is using the same database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Swept %d expired policies, %d expired relationships.\n",
			res.Policies, res.Relationships)

		if sweepThreatsOlderThan != "" {
			keep, perr := time.ParseDuration(sweepThreatsOlderThan)
			if perr != nil {
				return fmt.Errorf("invalid --threats-older-than duration: %w", perr)
			}
			n, err := s.CleanupOldThreats(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d old threat records.\n", n)
		}

		if sweepVacuum {
			if err := s.Vacuum(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Vacuumed database.")
		}
		return nil
	},
}
