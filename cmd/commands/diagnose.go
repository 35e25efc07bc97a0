package commands

import (
	"fmt"

	"github.com/car-advisor/advisor/pkg/audit"
	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/render"
	"github.com/car-advisor/advisor/pkg/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	diagnoseAnswers map[string]string
	outputFormat    string
	withRecommend   bool
	sortMode        string
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the diagnosis for a set of answers",
	Long: `Score a full answer set, print the matched profile and the request it maps to.
Unanswered ratings count as neutral (3).

Examples:
  # Diagnose a family buyer
  advisor diagnose --answer purpose=family --answer budget=medium --answer passengers=5+

  # Add preference ratings and fetch recommendations
  advisor diagnose -a purpose=commute -a budget=low -a fuel_importance=5 --recommend

  # Specify output format
  advisor diagnose -a purpose=business --format json`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringToStringVarP(&diagnoseAnswers, "answer", "a", nil, "Answer as key=value, repeatable")
	diagnoseCmd.Flags().StringVar(&outputFormat, "format", "cli", "Output format (cli, json)")
	diagnoseCmd.Flags().BoolVar(&withRecommend, "recommend", false, "Fetch recommendations from the upstream service")
	diagnoseCmd.Flags().StringVar(&sortMode, "sort", string(render.SortRecommended), "Card order (recommended, price-asc, price-desc, fuel-desc)")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if outputFormat != "cli" && outputFormat != "json" {
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
	mode := render.SortMode(sortMode)
	if !mode.Valid() {
		return fmt.Errorf("unsupported sort mode: %s", sortMode)
	}

	var answers types.AnswerSet
	for key, value := range diagnoseAnswers {
		if err := answers.Set(types.QuestionKey(key), value); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	diagnosis, err := eng.Diagnose(&answers)
	if err != nil {
		return fmt.Errorf("diagnosis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if !withRecommend {
		if outputFormat == "json" {
			return diagnosis.OutputJSON(out)
		}
		return diagnosis.OutputCLI(out)
	}

	log.Info("Fetching recommendations")
	result, err := eng.RecommendDiagnosis(commandContext(cmd), diagnosis, engine.RecommendOptions{
		Sort:     mode,
		Metadata: audit.AuditMetadata{Source: "cli"},
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return result.OutputJSON(out)
	}
	if err := diagnosis.OutputCLI(out); err != nil {
		return err
	}
	return result.OutputCLI(out)
}
