package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

func printComparison(w io.Writer, result *domain.ComparisonResult) {
	if result == nil {
		return
	}

	summary := result.Summary
	fmt.Fprintf(w, "Compared %d listings for %q: %d kept, %d filtered out (urgency %s)\n",
		summary.TotalReceived, result.Request.Item, summary.AfterFiltering, summary.FilteredOut, summary.Urgency)
	for _, f := range summary.FilteredReasons {
		fmt.Fprintf(w, "  - %s %s: %s\n", f.Platform, f.ItemName, f.Reason)
	}

	for _, l := range result.Ranked.Listings {
		fmt.Fprintf(w, "#%d  %-10s %6.2f  ₹%.2f (%s)  %s  %.1f★ (%d)\n",
			l.Rank, l.Platform, l.FinalScore, l.Price, l.UnitPriceLabel, l.DeliveryLabel, l.Rating, l.ReviewsCount)
		fmt.Fprintf(w, "    %s\n", l.OriginalName)
		if len(l.Flags) > 0 {
			fmt.Fprintf(w, "    flags: %s\n", strings.Join(l.Flags, ", "))
		}
		if len(l.Warnings) > 0 {
			fmt.Fprintf(w, "    warnings: %s\n", strings.Join(l.Warnings, ", "))
		}
		if l.Explanation != "" {
			fmt.Fprintf(w, "    %s\n", l.Explanation)
		}
	}

	for _, t := range result.Insights.DetectedTradeoffs {
		fmt.Fprintf(w, "Tradeoff (%s): %s\n", t.Type, t.Description)
	}
}

func printDecision(w io.Writer, d *domain.Decision) {
	if d == nil {
		return
	}

	fmt.Fprintf(w, "\nDecision: %s (confidence %s, risk %s)\n", d.Type, d.Confidence, d.Risk)
	if d.Selected != nil {
		fmt.Fprintf(w, "Chosen: #%d %s on %s for ₹%.2f\n", d.Selected.Rank, d.Selected.OriginalName, d.Selected.Platform, d.Selected.Price)
	}
	fmt.Fprintf(w, "Reason: %s\n", d.Reasoning.PrimaryReason)
	for _, risk := range d.Reasoning.RisksIdentified {
		fmt.Fprintf(w, "Risk: %s\n", risk)
	}
	if d.Explanation.SimpleMessage != "" {
		fmt.Fprintf(w, "\n%s\n", d.Explanation.SimpleMessage)
	}
}

func printPurchase(w io.Writer, p *domain.PurchaseResult) {
	fmt.Fprintf(w, "\nPurchase: %s\n", p.Status)
	if p.Order != nil {
		fmt.Fprintf(w, "Order %s on %s", p.Order.ID, p.Order.Platform)
		if p.Order.PlatformOrder != "" {
			fmt.Fprintf(w, " (platform order %s)", p.Order.PlatformOrder)
		}
		fmt.Fprintln(w)
	}
	for _, attempt := range p.Attempts {
		fmt.Fprintf(w, "  %s\n", attempt)
	}
}
