package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/bloodhound/internal/models"
)

func getSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHop(w io.Writer, hop int, doc models.Document) {
	title := doc.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "%s %s\n    %s\n",
		color.GreenString("[%d]", hop),
		color.New(color.Bold).Sprint(title),
		color.BlueString(doc.URL),
	)
}

func stopDescription(reason models.StopReason) string {
	switch reason {
	case models.StopMaxPathLength:
		return "reached the maximum path length"
	case models.StopNoCandidates:
		return "no links left to follow"
	case models.StopOracleTerminate:
		return "the oracle judged the objective reached"
	case models.StopOracleEmpty:
		return "the oracle gave no usable link"
	case models.StopOracleFailed:
		return "the oracle call failed"
	case models.StopFetchFailed:
		return "a page could not be fetched"
	case models.StopCancelled:
		return "cancelled"
	default:
		return string(reason)
	}
}

func printSummary(w io.Writer, result *models.CrawlResult) {
	c := color.GreenString
	if result.StopReason == models.StopFetchFailed || result.StopReason == models.StopOracleFailed {
		c = color.YellowString
	}
	fmt.Fprintf(w, "\n%s\n", c("Crawl finished after %d hop(s): %s", result.Hops(), stopDescription(result.StopReason)))
}

func printDocument(w io.Writer, doc models.Document) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("Title:"), doc.Title)
	fmt.Fprintf(w, "%s %s\n", color.GreenString("URL:"), doc.URL)
	fmt.Fprintf(w, "%s %d\n", color.GreenString("Links:"), len(doc.Links))

	text := doc.Text
	if len(text) > 500 {
		text = strings.ToValidUTF8(text[:500], "") + "..."
	}
	if text != "" {
		fmt.Fprintf(w, "\n%s\n", text)
	}
}
