package main

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/xhad/bloodhound/internal/models"
)

// NewFetchCmd creates the fetch subcommand.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch and extract a single page",
		Example: heredoc.Doc(`
			$ bloodhound fetch https://go.dev/doc/
			$ bloodhound fetch https://go.dev/blog/ --processor readability --json
		`),
		Args: cobra.ExactArgs(1),
		RunE: runFetch,
	}

	cmd.Flags().StringP("processor", "p", "", "Extraction strategy: structured, CNA, readability, markdown")
	cmd.Flags().Bool("json", false, "Print the document as JSON")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	processorName, _ := cmd.Flags().GetString("processor")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.engine.FetchOne(cmd.Context(), models.FetchRequest{
		URL:       args[0],
		Processor: processorName,
	})
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), doc)
	}
	printDocument(cmd.OutOrStdout(), doc)
	return nil
}
