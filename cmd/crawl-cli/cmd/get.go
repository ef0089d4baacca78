package cmd

import (
	"fmt"
	"log"
	"os"

	"crawlkit/lib/configutil"
	"crawlkit/lib/crawler"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	getCmd.Flags().BoolVar(&flagBrowser, "browser", false, "fetch through a headless browser")
	getCmd.Flags().StringVar(&flagErrorLog, "errors", "", "export the error log to this path (.gob, .xlsx or .csv)")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get URL ATTRIBUTE...",
	Short: "Fetch a URL and read attributes off the response.",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := configutil.ReadConfig[Config](configPath)
		if err != nil && !os.IsNotExist(err) {
			log.Fatal(err)
		}

		c, err := crawler.New(config.crawlerOptions())
		if err != nil {
			log.Fatal(err)
		}

		res := fetchOne(cmd, c, args[0])
		if res == nil {
			fmt.Fprintln(os.Stderr, "fetch failed, consult the error log")
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Attribute", "Value"})

		for _, attribute := range args[1:] {
			value, err := c.Get(cmd.Context(), res, attribute)
			if err != nil {
				log.Fatal(err)
			}
			t.AppendRow(table.Row{attribute, fmt.Sprintf("%v", value)})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()

		if flagErrorLog != "" {
			if _, err := c.ExportErrors(flagErrorLog); err != nil {
				log.Fatal(err)
			}
		}
	},
}
