package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/store"
)

var (
	flagDB     string
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Browser security decision core",
	Long: "Scores URLs for phishing signals — homographs, typosquats, IP literals,\n" +
		"suspicious TLDs — and manages the persistent policy store that remembers\n" +
		"user decisions about navigations, downloads, and credential submissions.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the policy database (default ~/.sentinel/policy.db)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to the scoring config YAML (default ~/.sentinel/scoring.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	path := flagDB
	if path == "" {
		path = store.DefaultPath()
	}
	return store.Open(path)
}

func loadScoring() (*config.ScoringConfig, error) {
	return config.LoadScoring(flagConfig)
}
