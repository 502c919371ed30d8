package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/brickbook/pkg/docio"
	"github.com/matzehuels/brickbook/pkg/document"
)

// Export formats.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var validFormats = map[string]bool{formatJSON: true, formatDOT: true, formatSVG: true}

// exportOpts holds options for the export command.
type exportOpts struct {
	formats  []string
	output   string
	detailed bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [book.brkb]",
		Short: "Export the layout or structure of an instruction book",
		Long: `Export an instruction book.

Formats:
  json  every page, step, parts list and callout rectangle
  dot   the submodel, page and step tree as a Graphviz graph
  svg   the same tree rendered with Graphviz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range opts.formats {
				if !validFormats[f] {
					return fmt.Errorf("invalid format: %s (must be json, dot or svg)", f)
				}
			}
			return c.runExport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", []string{formatJSON}, "output formats: json, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: book path without extension)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add rectangles and part counts to dot/svg nodes")

	return cmd
}

// runExport writes one file per requested format.
func (c *CLI) runExport(ctx context.Context, input string, opts exportOpts) error {
	in, closeCache, err := c.openBook(ctx, input, true)
	if err != nil {
		return err
	}
	defer closeCache()

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(input, bookExt)
	}

	prog := newProgress(c.Logger)
	var written []string
	for _, f := range opts.formats {
		path := base + "." + f
		if err := exportFormat(ctx, in.Document(), f, path, opts.detailed); err != nil {
			return fmt.Errorf("export %s: %w", f, err)
		}
		written = append(written, path)
	}
	prog.done(fmt.Sprintf("Exported %d files", len(written)))

	printSuccess("Export complete")
	for _, path := range written {
		printFile(path)
	}
	return nil
}

func exportFormat(ctx context.Context, d *document.Document, format, path string, detailed bool) error {
	switch format {
	case formatJSON:
		return docio.ExportLayoutJSON(d, path)
	case formatDOT:
		return os.WriteFile(path, []byte(docio.ToDOT(d, docio.DOTOptions{Detailed: detailed})), 0644)
	case formatSVG:
		svg, err := docio.RenderSVG(ctx, docio.ToDOT(d, docio.DOTOptions{Detailed: detailed}))
		if err != nil {
			return err
		}
		return os.WriteFile(path, svg, 0644)
	}
	return fmt.Errorf("unknown format %q", format)
}
