package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var policyFormat string

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyListCmd, policyShowCmd, policyRmCmd, policyExportCmd, policyImportCmd)
	policyCmd.PersistentFlags().StringVarP(&policyFormat, "format", "f", "text", "Output format (text|json)")
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage stored policies",
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all policies, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		policies, err := s.ListPolicies(cmd.Context())
		if err != nil {
			return err
		}
		if policyFormat == "json" {
			out, err := json.MarshalIndent(policies, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		if len(policies) == 0 {
			fmt.Println("No policies stored.")
			return nil
		}
		for _, p := range policies {
			matcher := p.RuleName
			if p.URLPattern != "" {
				matcher = p.URLPattern
			}
			if p.ContentHash != "" {
				matcher = p.ContentHash[:12] + "…"
			}
			expiry := ""
			if p.ExpiresAt != nil {
				expiry = "  expires " + p.ExpiresAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%6d  %-10s %-26s %-40s hits=%d%s\n",
				p.ID, p.Action, p.MatchKind, matcher, p.HitCount, expiry)
		}
		return nil
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one policy as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid policy id %q", args[0])
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.GetPolicy(cmd.Context(), id)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var policyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid policy id %q", args[0])
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeletePolicy(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted policy %d.\n", id)
		return nil
	},
}

var policyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export policies, relationships, and templates as JSON",
	Long:  "Writes the portable policy document to the given file, or stdout.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		doc, err := s.Export(cmd.Context())
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return os.WriteFile(args[0], append(out, '\n'), 0o600)
		}
		fmt.Println(string(out))
		return nil
	},
}

var policyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a policy document",
	Long: "Validates every record in the document and applies it in one\n" +
		"transaction. A single malformed record rejects the whole import.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.Import(cmd.Context(), doc)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d policies, %d relationships, %d templates.\n",
			res.Policies, res.Relationships, res.Templates)
		return nil
	},
}
