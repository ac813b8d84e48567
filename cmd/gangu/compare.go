package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gangu/backend/internal/app"
	"github.com/gangu/backend/internal/domain"
	"github.com/gangu/backend/internal/infrastructure/platform"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank the listings in a file and decide",
	Long: `Compare reads a YAML or JSON file holding a request and the listings found for it,
runs the comparison pipeline and prints the ranking and the decision. Nothing is bought.

Flags override the request stored in the file.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringP("file", "f", "", "listings file (.yaml, .yml or .json)")
	compareCmd.Flags().String("item", "", "requested item")
	compareCmd.Flags().String("quantity", "", "requested quantity, e.g. 1kg")
	compareCmd.Flags().String("urgency", "", "urgent, high, normal or low")
	compareCmd.Flags().String("category", "", "grocery, medicine or daily_essential")
	compareCmd.Flags().Bool("elderly", false, "ask before buying unless the choice is clear-cut")
	_ = compareCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	file, err := platform.ReadListingsFile(path)
	if err != nil {
		return err
	}

	request := file.Request
	if cmd.Flags().Changed("item") {
		request.Item, _ = cmd.Flags().GetString("item")
	}
	if cmd.Flags().Changed("quantity") {
		request.Quantity, _ = cmd.Flags().GetString("quantity")
	}
	if cmd.Flags().Changed("urgency") {
		urgency, _ := cmd.Flags().GetString("urgency")
		request.Urgency = domain.Urgency(urgency)
	}
	if cmd.Flags().Changed("category") {
		request.Category, _ = cmd.Flags().GetString("category")
	}
	if cmd.Flags().Changed("elderly") {
		elderly, _ := cmd.Flags().GetBool("elderly")
		request.ElderlyProtection = &elderly
	}
	if request.Item == "" {
		return fmt.Errorf("no item: set request.item in %s or pass --item", path)
	}

	comparison, err := app.NewComparison(cfg)
	if err != nil {
		return err
	}

	eval, err := comparison.Evaluate(cmd.Context(), request, file.Listings)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), eval)
	}
	printComparison(cmd.OutOrStdout(), eval.Comparison)
	printDecision(cmd.OutOrStdout(), eval.Decision)
	return nil
}
