package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	templatesCategory string
	templatesFormat   string
	instantiateVars   []string
	instantiateBy     string
)

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesSeedCmd, templatesInstantiateCmd)
	templatesCmd.PersistentFlags().StringVarP(&templatesFormat, "format", "f", "text", "Output format (text|json)")
	templatesListCmd.Flags().StringVar(&templatesCategory, "category", "", "Filter by category")
	templatesInstantiateCmd.Flags().StringArrayVar(&instantiateVars, "var", nil, "Template variable as key=value (repeatable)")
	templatesInstantiateCmd.Flags().StringVar(&instantiateBy, "created-by", "admin", "Creator recorded on the new policy")
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage policy templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		templates, err := s.ListTemplates(cmd.Context(), templatesCategory)
		if err != nil {
			return err
		}
		if templatesFormat == "json" {
			out, err := json.MarshalIndent(templates, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		if len(templates) == 0 {
			fmt.Println("No templates stored. Run 'sentinel templates seed' to install the builtins.")
			return nil
		}
		for _, t := range templates {
			marker := " "
			if t.Builtin {
				marker = "*"
			}
			fmt.Printf("%s %-34s %-12s %s\n", marker, t.Name, t.Category, t.Description)
		}
		return nil
	},
}

var templatesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install or refresh the builtin templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SeedBuiltinTemplates(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Builtin templates seeded.")
		return nil
	},
}

var templatesInstantiateCmd = &cobra.Command{
	Use:   "instantiate <name>",
	Short: "Create a policy from a template",
	Long: "Expands the named template into a concrete policy, substituting\n" +
		"{placeholder} variables given with --var, and stores it.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars := make(map[string]string, len(instantiateVars))
		for _, kv := range instantiateVars {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --var %q, want key=value", kv)
			}
			vars[key] = value
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.Instantiate(cmd.Context(), args[0], vars, instantiateBy)
		if err != nil {
			return err
		}
		fmt.Printf("Created policy %d from template %q.\n", id, args[0])
		return nil
	},
}
