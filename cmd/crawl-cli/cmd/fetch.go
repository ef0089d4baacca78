package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"crawlkit/lib/configutil"
	"crawlkit/lib/crawler"
	"crawlkit/lib/identity"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Config is the on-disk crawler configuration, read from crawl.json5 with
// optional .local overrides.
type Config struct {
	TimeoutSeconds int               `json:"timeout_seconds"`
	Agent          string            `json:"agent"`
	Referrer       string            `json:"referrer"`
	Headers        map[string]string `json:"headers"`
	Softwares      []string          `json:"softwares"`
	Systems        []string          `json:"systems"`
	Referrers      []string          `json:"referrers"`
	ExplicitAgent  string            `json:"explicit_agent"`
}

func agentKind(name string) identity.Kind {
	switch name {
	case "crawler":
		return identity.KindCrawler
	case "explicit":
		return identity.KindExplicit
	default:
		return identity.KindRandom
	}
}

func (c Config) crawlerOptions() crawler.Options {
	return crawler.Options{
		Headers:  c.Headers,
		Agent:    agentKind(c.Agent),
		Referrer: c.Referrer,
		Identity: identity.Config{
			Softwares: c.Softwares,
			Systems:   c.Systems,
			Referrers: c.Referrers,
			Agent:     c.ExplicitAgent,
		},
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

var (
	flagAgent    string
	flagBrowser  bool
	flagEntity   string
	flagErrorLog string
)

func init() {
	fetchCmd.Flags().StringVar(&flagAgent, "agent", "", "identity kind: random, crawler or explicit")
	fetchCmd.Flags().BoolVar(&flagBrowser, "browser", false, "fetch through a headless browser")
	fetchCmd.Flags().StringVar(&flagEntity, "entity", "", "entity id to tag failure records with")
	fetchCmd.Flags().StringVar(&flagErrorLog, "errors", "", "export the error log to this path (.gob, .xlsx or .csv)")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL...",
	Short: "Fetch each URL with scheme-flip fallback and print the outcome.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := configutil.ReadConfig[Config](configPath)
		if err != nil && !os.IsNotExist(err) {
			log.Fatal(err)
		}
		if flagAgent != "" {
			config.Agent = flagAgent
			config.Headers = nil
		}

		c, err := crawler.New(config.crawlerOptions())
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"URL", "Kind", "Status", "Final URL"})

		for _, rawURL := range args {
			res := fetchOne(cmd, c, rawURL)
			if res == nil {
				t.AppendRow(table.Row{rawURL, "-", "failed", "-"})
				continue
			}
			status := "-"
			if res.Kind() == crawler.KindResponse {
				status = res.Response().Status()
			}
			t.AppendRow(table.Row{rawURL, res.Kind().String(), status, res.URL()})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()

		if flagErrorLog != "" {
			out, err := c.ExportErrors(flagErrorLog)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println("error log written to", out)
		} else if c.Errors().Len() > 0 {
			fmt.Printf("%d failure(s) recorded, rerun with --errors to export them\n", c.Errors().Len())
		}
	},
}

func fetchOne(cmd *cobra.Command, c *crawler.Crawler, rawURL string) *crawler.Result {
	opts := crawler.FetchOptions{EntityID: flagEntity}
	if flagBrowser {
		return c.FetchRendered(cmd.Context(), rawURL, opts)
	}
	return c.Fetch(cmd.Context(), rawURL, opts)
}
