package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/policydiff"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.json> <new.json>",
	Short: "Compare two exported policy documents",
	Long: "Loads two documents produced by 'sentinel policy export' and shows\n" +
		"which policies, relationships, and templates an import of the second\n" +
		"would add, remove, or change.",
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read old document: %w", err)
	}
	oldDoc, err := decodeDocument(oldData)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	newData, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read new document: %w", err)
	}
	newDoc, err := decodeDocument(newData)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	result := policydiff.Diff(oldDoc, newDoc)
	result.OldPath = args[0]
	result.NewPath = args[1]

	switch diffFormat {
	case "json":
		out, err := policydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(policydiff.FormatText(result))
	}
	return nil
}
