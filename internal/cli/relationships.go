package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/model"
)

var (
	relationshipsKind   string
	relationshipsFormat string
)

func init() {
	rootCmd.AddCommand(relationshipsCmd)
	relationshipsCmd.AddCommand(relationshipsListCmd, relationshipsRevokeCmd)
	relationshipsCmd.PersistentFlags().StringVarP(&relationshipsFormat, "format", "f", "text", "Output format (text|json)")
	relationshipsListCmd.Flags().StringVar(&relationshipsKind, "kind", "", "Filter by kind (trusted|blocked)")
}

var relationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "Manage credential-submission relationships",
}

var relationshipsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered form/action origin pairings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		rels, err := s.ListRelationships(cmd.Context(), model.RelationshipKind(relationshipsKind))
		if err != nil {
			return err
		}
		if relationshipsFormat == "json" {
			out, err := json.MarshalIndent(rels, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		if len(rels) == 0 {
			fmt.Println("No relationships stored.")
			return nil
		}
		for _, r := range rels {
			lastUsed := "never"
			if r.LastUsed != nil {
				lastUsed = r.LastUsed.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%6d  %-8s %-35s → %-35s uses=%d last=%s\n",
				r.ID, r.Kind, r.FormOrigin, r.ActionOrigin, r.UseCount, lastUsed)
		}
		return nil
	},
}

var relationshipsRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a relationship",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid relationship id %q", args[0])
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeleteRelationship(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Revoked relationship %d.\n", id)
		return nil
	},
}
