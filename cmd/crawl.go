package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/pkg/crawler"
)

// NewCrawlCmd creates the crawl subcommand.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Follow links from a start page toward an objective",
		Example: heredoc.Doc(`
			$ bloodhound crawl https://en.wikipedia.org/wiki/Gopher --objective "where do gophers live"
			$ bloodhound crawl https://go.dev --objective "release notes for the latest Go" --max-hops 3 --json
		`),
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}

	cmd.Flags().StringP("objective", "o", "", "What the crawl is looking for")
	cmd.Flags().IntP("max-hops", "n", 0, "Maximum number of pages on the path (default from config)")
	cmd.Flags().StringP("processor", "p", "", "Extraction strategy: structured, CNA, readability, markdown")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("objective")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	objective, _ := cmd.Flags().GetString("objective")
	maxHops, _ := cmd.Flags().GetInt("max-hops")
	processorName, _ := cmd.Flags().GetString("processor")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	req := models.CrawlRequest{
		StartURL:      args[0],
		MaxPathLength: maxHops,
		Objective:     objective,
		Processor:     processorName,
	}

	var opts []crawler.Option
	if !asJSON {
		fmt.Fprintf(out, "\n%s\n", color.BlueString("Crawling from %s", req.StartURL))
		fmt.Fprintf(out, "%s %s\n\n", color.CyanString("Objective:"), objective)

		spinner := getSpinner(cmd.ErrOrStderr(), "Fetching...")
		defer spinner.Finish()

		opts = append(opts, crawler.WithHopObserver(func(hop int, doc models.Document) {
			_ = spinner.Clear()
			printHop(out, hop, doc)
			spinner.Describe(color.CyanString("Choosing the next link..."))
		}))
	}

	result, err := a.engine.Crawl(ctx, req, opts...)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(out, result)
	}
	printSummary(out, result)
	return nil
}
