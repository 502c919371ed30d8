package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/instructions"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info [book.brkb]",
		Short: "Summarize an instruction book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeCache, err := c.openBook(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			defer closeCache()
			printBook(args[0], in.Document())
			return nil
		},
	}
}

// openBook loads a saved book into a fresh Instructions. Books that are
// only read skip the measurement cache.
func (c *CLI) openBook(ctx context.Context, path string, readOnly bool) (*instructions.Instructions, func() error, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	in, closeCache, err := c.newInstructions(ctx, cfg, readOnly)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	if err := in.Load(path); err != nil {
		closeCache()
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return in, closeCache, nil
}

// printBook prints the book summary and its page table.
func printBook(path string, d *document.Document) {
	pages := d.Pages()
	steps, locked := 0, 0
	for _, p := range pages {
		steps += len(p.Steps)
		if p.Locked {
			locked++
		}
	}

	fmt.Println(StyleTitle.Render(d.Main.Name()))
	printKeyValue("File", path)
	printKeyValue("ID", d.ID.String())
	printKeyValue("Page size", fmt.Sprintf("%g x %g", d.PageSize.W, d.PageSize.H))
	printKeyValue("Pages", strconv.Itoa(len(pages)))
	printKeyValue("Steps", strconv.Itoa(steps))
	printKeyValue("Submodels", strconv.Itoa(len(d.Submodels())-1))
	printKeyValue("Locked", strconv.Itoa(locked))
	printNewline()
	fmt.Println(pageTable(pages, -1).Render())
}

// pageTable builds a table with one row per page. The row at cursor is
// highlighted; pass -1 for none.
func pageTable(pages []*document.Page, cursor int) *table.Table {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = pageRow(p)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Page", "Submodel", "Steps", "Parts", "Preview", "Locked").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == cursor:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case pages[row].Locked:
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
}

func pageRow(p *document.Page) []string {
	parts := 0
	for _, s := range p.Steps {
		parts += len(s.Parts)
	}
	name := ""
	if sm := p.Submodel(); sm != nil {
		name = sm.Name()
	}
	preview := "—"
	if p.Preview != nil {
		preview = fmt.Sprintf("%.2fx", p.Preview.Scale)
	}
	locked := ""
	if p.Locked {
		locked = "✓"
	}
	return []string{strconv.Itoa(p.Number), name, strconv.Itoa(len(p.Steps)), strconv.Itoa(parts), preview, locked}
}
