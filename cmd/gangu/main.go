// Package main is the entry point for the gangu CLI: offline comparisons,
// catalog-backed orders and order history.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gangu/backend/config"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is loaded once before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gangu",
	Short: "Compare grocery listings across platforms and decide what to buy",
	Long: `gangu compares the same grocery item across quick-commerce and marketplace
platforms, ranks the listings, and decides whether to buy, ask first, or look again.

compare works on a listings file; order searches the configured platforms or an
offline catalog and buys when the decision is auto_buy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if !verbose {
			log.SetOutput(io.Discard)
		}

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/gangu/config.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show component logs on stderr")
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
