package commands

import (
	"encoding/json"
	"fmt"

	"github.com/car-advisor/advisor/pkg/profiles"
	"github.com/spf13/cobra"
)

var profilesFormat string

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the diagnosis profiles",
	Long:  `Print every profile the diagnosis can produce, in tie-break order.`,
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().StringVar(&profilesFormat, "format", "cli", "Output format (cli, json)")
}

func runProfiles(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	all := profiles.All()

	switch profilesFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(all)
	case "cli":
		for i, p := range all {
			fmt.Fprintf(out, "%d. %s (%s)\n", i+1, p.Name, p.ID)
			fmt.Fprintf(out, "   %s\n", p.Description)
			for _, rec := range p.Recommendations {
				fmt.Fprintf(out, "   - %s\n", rec)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", profilesFormat)
	}
}
