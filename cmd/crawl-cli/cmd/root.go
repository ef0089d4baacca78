package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "crawl-cli",
	Short: "crawl-cli fetches web pages resiliently and inspects the results.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "crawl.json5",
		"path to the crawler configuration file",
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
