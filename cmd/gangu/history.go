package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gangu/backend/internal/app"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer services.Close()

		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		orders, err := services.Purchases.History(cmd.Context(), user, limit)
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), orders)
		}

		out := cmd.OutOrStdout()
		if len(orders) == 0 {
			fmt.Fprintln(out, "No orders found")
			return nil
		}
		for _, order := range orders {
			fmt.Fprintf(out, "%s  %-9s  %-10s  ₹%8.2f  %s  (%s)\n",
				order.CreatedAt.Local().Format("2006-01-02 15:04"), order.Status, order.Platform,
				order.Price, order.ItemName, order.DecisionType)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("user", "", "user whose orders to list (default from purchase.user_id)")
	historyCmd.Flags().Int("limit", 20, "maximum number of orders")

	rootCmd.AddCommand(historyCmd)
}
