package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/brickbook/pkg/config"
	"github.com/matzehuels/brickbook/pkg/errors"
)

// importOpts holds the command-line overrides for the import command.
type importOpts struct {
	output       string
	noCache      bool
	keepSteps    bool
	library      string
	stepsPerPage int
	maxPerStep   int
	orientation  string
	separators   bool
}

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import [model.ldr]",
		Short: "Import an LDraw model into an instruction book",
		Long: `Import an LDraw or MPD model into an instruction book.

The model is split into steps layer by layer (or at its own STEP lines with
--keep-steps), every part and step image is measured, and each page is laid
out. The book is saved next to the model as <model>.brkb unless -o is given.

Measurements are cached between runs; see 'brickbook cache'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return c.runImport(cmd.Context(), args[0], cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output book (default: <model>.brkb)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the measurement cache")
	cmd.Flags().BoolVar(&opts.keepSteps, "keep-steps", false, "use the model's STEP lines instead of splitting by layer")
	cmd.Flags().StringVar(&opts.library, "library", "", "LDraw library root")
	cmd.Flags().IntVar(&opts.stepsPerPage, "steps-per-page", config.DefaultStepsPerPage, "steps placed on each page")
	cmd.Flags().IntVar(&opts.maxPerStep, "max-per-step", 0, "most parts added in one step")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "step grid order: row, column")
	cmd.Flags().BoolVar(&opts.separators, "separators", false, "draw lines between steps")

	return cmd
}

// apply copies the flags the user set onto cfg.
func (o importOpts) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("keep-steps") {
		cfg.Import.KeepSteps = o.keepSteps
	}
	if f.Changed("library") {
		cfg.Import.Library = o.library
	}
	if f.Changed("steps-per-page") {
		if o.stepsPerPage < 1 {
			return fmt.Errorf("steps-per-page must be at least 1, got %d", o.stepsPerPage)
		}
		cfg.Import.StepsPerPage = o.stepsPerPage
	}
	if f.Changed("max-per-step") {
		if o.maxPerStep < 1 {
			return fmt.Errorf("max-per-step must be at least 1, got %d", o.maxPerStep)
		}
		cfg.Splitter.MaxPerStep = o.maxPerStep
	}
	if f.Changed("orientation") {
		cfg.Page.Orientation = o.orientation
	}
	if f.Changed("separators") {
		cfg.Page.Separators = o.separators
	}
	return cfg.ValidateAndSetDefaults()
}

// runImport imports the model, saves the book and prints a summary.
func (c *CLI) runImport(ctx context.Context, input string, cfg *config.Config, opts importOpts) error {
	in, closeCache, err := c.newInstructions(ctx, cfg, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer closeCache()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Importing %s...", filepath.Base(input)))
	spinner.Start()

	err = in.ImportModel(ctx, input, func(step, total int, label string) bool {
		spinner.Update(fmt.Sprintf("[%d/%d] %s", step, total, label))
		return !spinner.Cancelled()
	})
	if err != nil {
		spinner.StopWithError("Import failed")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("import %s: %w", input, err)
	}
	spinner.Stop()

	output := opts.output
	if output == "" {
		output = bookPath(input)
	}
	if err := in.Save(output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}

	st := in.Stats()
	prog.done(fmt.Sprintf("Imported %d pages", st.Pages))
	printSuccess("Import complete")
	printFile(output)
	printStats(st, in.RenderCache().Stats())
	for _, m := range in.Missing() {
		printWarning("missing part %s (%s line %d)", m.Name, m.Parent, m.Line)
	}
	printProblems(in.Warnings())
	printNewline()
	printNextStep("Inspect", appName+" info "+output)

	return nil
}

// printProblems prints layout warnings, out-of-frame images first.
func printProblems(warnings []error) {
	for _, w := range warnings {
		if errors.Is(w, errors.ErrCodeOutOfFrame) {
			printWarning("%s", w)
		}
	}
	for _, w := range warnings {
		if !errors.Is(w, errors.ErrCodeOutOfFrame) {
			printWarning("%s", w)
		}
	}
}
