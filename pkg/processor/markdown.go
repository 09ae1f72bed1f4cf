package processor

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/xhad/bloodhound/internal/models"
)

// MarkdownExtractor is the structured strategy with Text rendered as
// Markdown instead of flattened plain text.
type MarkdownExtractor struct {
	conv *converter.Converter
}

// NewMarkdownExtractor builds the converter once; it is safe for
// concurrent use.
func NewMarkdownExtractor() MarkdownExtractor {
	return MarkdownExtractor{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

func (m MarkdownExtractor) Extract(rawHTML, pageURL string) models.Document {
	d := StructuredExtractor{}.Extract(rawHTML, pageURL)
	if m.conv == nil {
		return d
	}

	md, err := m.conv.ConvertString(rawHTML, converter.WithDomain(d.RootBaseURL))
	if err != nil {
		return d
	}
	if md = strings.TrimSpace(md); md != "" {
		d.Text = md
	}
	return d
}
