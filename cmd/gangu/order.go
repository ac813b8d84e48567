package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gangu/backend/internal/app"
	"github.com/gangu/backend/internal/domain"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Search the platforms, decide and buy on auto_buy",
	Long: `Order searches every configured platform (or an offline catalog), compares the
listings, decides, and places the order when the decision is auto_buy. Any other
decision is printed for you to act on.

Purchases follow purchase.mode: dry_run (default) records orders without calling
any platform.`,
	RunE: runOrder,
}

func init() {
	orderCmd.Flags().String("item", "", "requested item")
	orderCmd.Flags().String("quantity", "", "requested quantity, e.g. 1kg")
	orderCmd.Flags().String("urgency", "", "urgent, high, normal or low")
	orderCmd.Flags().String("category", "", "grocery, medicine or daily_essential")
	orderCmd.Flags().Bool("elderly", false, "ask before buying unless the choice is clear-cut (default from decision.elderly_protection)")
	orderCmd.Flags().String("catalog", "", "offline catalog file, replaces search.catalog_path")
	orderCmd.Flags().String("user", "", "user placing the order (default from purchase.user_id)")
	orderCmd.Flags().StringSlice("platforms", nil, "only search these platforms")
	_ = orderCmd.MarkFlagRequired("item")

	rootCmd.AddCommand(orderCmd)
}

func runOrder(cmd *cobra.Command, args []string) error {
	if catalog, _ := cmd.Flags().GetString("catalog"); catalog != "" {
		cfg.Search.CatalogPath = catalog
	}

	services, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	req := domain.ShoppingRequest{}
	req.Item, _ = cmd.Flags().GetString("item")
	req.Quantity, _ = cmd.Flags().GetString("quantity")
	req.Category, _ = cmd.Flags().GetString("category")
	req.UserID, _ = cmd.Flags().GetString("user")
	req.Platforms, _ = cmd.Flags().GetStringSlice("platforms")
	urgency, _ := cmd.Flags().GetString("urgency")
	req.Urgency = domain.Urgency(urgency)
	if cmd.Flags().Changed("elderly") {
		elderly, _ := cmd.Flags().GetBool("elderly")
		req.ElderlyProtection = &elderly
	}

	outcome, err := services.Grocery.Order(cmd.Context(), req)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), outcome)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Searched %d platforms, %d listings found\n",
		len(outcome.Search.PlatformsQueried), outcome.Search.ListingsFound)
	for _, failure := range outcome.Search.PlatformErrors {
		fmt.Fprintf(out, "  %s failed: %s\n", failure.Platform, failure.Error)
	}
	printComparison(out, outcome.Comparison)
	printDecision(out, outcome.Decision)
	if outcome.Purchase != nil {
		printPurchase(out, outcome.Purchase)
	}
	return nil
}
