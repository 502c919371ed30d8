package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/edit"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/instructions"
)

// editFunc builds the command to apply to a loaded book. A nil command
// with a nil error asks for a plain relayout.
type editFunc func(d *document.Document) (edit.Command, error)

// editCommand creates the edit command and its subcommands.
func (c *CLI) editCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply a layout edit to an instruction book",
		Long: `Apply a layout edit to an instruction book and save it.

Pages and steps are addressed by the numbers printed in the book and shown
by 'brickbook info'. Every edit except locking relays out the unlocked pages.`,
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "write the edited book here instead of in place")

	sub := func(use, short string, args int, build func(args []string) editFunc) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(args),
			RunE: func(cmd *cobra.Command, a []string) error {
				return c.runEdit(cmd.Context(), a[0], output, build(a[1:]))
			},
		}
	}

	cmd.AddCommand(sub("lock [book] [page]", "Lock a page so relayout keeps it", 2, func(a []string) editFunc {
		return lockEdit(a[0], true)
	}))
	cmd.AddCommand(sub("unlock [book] [page]", "Unlock a page and lay it out again", 2, func(a []string) editFunc {
		return lockEdit(a[0], false)
	}))
	cmd.AddCommand(sub("delete-step [book] [page] [step]", "Delete a step, moving its parts to a neighbour", 3, func(a []string) editFunc {
		return func(d *document.Document) (edit.Command, error) {
			s, err := findStep(d, a[0], a[1])
			if err != nil {
				return nil, err
			}
			return &edit.DeleteStep{Step: s}, nil
		}
	}))
	cmd.AddCommand(sub("merge-step [book] [page] [step]", "Merge a step with the one after it", 3, func(a []string) editFunc {
		return func(d *document.Document) (edit.Command, error) {
			s, err := findStep(d, a[0], a[1])
			if err != nil {
				return nil, err
			}
			return &edit.MergeStep{Step: s}, nil
		}
	}))
	cmd.AddCommand(sub("resize-page [book] [page] [width] [height]", "Change the size of a page", 4, func(a []string) editFunc {
		return func(d *document.Document) (edit.Command, error) {
			p, err := findPage(d, a[0])
			if err != nil {
				return nil, err
			}
			w, err := strconv.ParseFloat(a[1], 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("invalid width %q", a[1])
			}
			h, err := strconv.ParseFloat(a[2], 64)
			if err != nil || h <= 0 {
				return nil, fmt.Errorf("invalid height %q", a[2])
			}
			return &edit.ResizePage{Page: p, Size: geom.Size{W: w, H: h}}, nil
		}
	}))
	cmd.AddCommand(sub("relayout [book]", "Lay out every unlocked page again", 1, func([]string) editFunc {
		return func(*document.Document) (edit.Command, error) { return nil, nil }
	}))

	return cmd
}

// runEdit loads the book, applies the edit and saves the result.
func (c *CLI) runEdit(ctx context.Context, book, output string, build editFunc) error {
	in, closeCache, err := c.openBook(ctx, book, false)
	if err != nil {
		return err
	}
	defer closeCache()

	cmd, err := build(in.Document())
	if err != nil {
		return err
	}
	if err := applyEdit(ctx, in, cmd); err != nil {
		return err
	}

	if output == "" {
		output = book
	}
	if err := in.Save(output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}

	if cmd == nil {
		printSuccess("Relayout complete")
	} else {
		printSuccess("Applied %s", cmd.Kind())
	}
	printFile(output)
	printProblems(in.Warnings())
	return nil
}

func applyEdit(ctx context.Context, in *instructions.Instructions, cmd edit.Command) error {
	if cmd == nil {
		return in.Relayout(ctx)
	}
	if err := in.Do(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind(), err)
	}
	return nil
}

func lockEdit(page string, locked bool) editFunc {
	return func(d *document.Document) (edit.Command, error) {
		p, err := findPage(d, page)
		if err != nil {
			return nil, err
		}
		return &edit.LockPage{Page: p, Locked: locked}, nil
	}
}

// findPage returns the page numbered arg.
func findPage(d *document.Document, arg string) (*document.Page, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid page number %q", arg)
	}
	for _, p := range d.Pages() {
		if p.Number == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no page %d", n)
}

// findStep returns the step numbered step on the page numbered page.
func findStep(d *document.Document, page, step string) (*document.Step, error) {
	p, err := findPage(d, page)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(step)
	if err != nil {
		return nil, fmt.Errorf("invalid step number %q", step)
	}
	for _, s := range p.Steps {
		if s.Number == n {
			return s, nil
		}
	}
	return nil, fmt.Errorf("page %d has no step %d", p.Number, n)
}
