package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/brickbook/pkg/instructions"
	"github.com/matzehuels/brickbook/pkg/render"
)

// Terminal palette (256-color codes).
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared with the browser and the page table.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleLabel   = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// mark is the glyph that leads a status line.
type mark struct {
	glyph string
	style lipgloss.Style
	body  lipgloss.Style
}

var (
	markDone = mark{"✓", lipgloss.NewStyle().Foreground(colorGreen), lipgloss.NewStyle()}
	markFail = mark{"✗", lipgloss.NewStyle().Foreground(colorRed), lipgloss.NewStyle()}
	markWarn = mark{"!", lipgloss.NewStyle().Foreground(colorYellow), StyleWarning}
	markNote = mark{"›", lipgloss.NewStyle().Foreground(colorGray), lipgloss.NewStyle()}
)

func (m mark) line(format string, args ...any) string {
	return m.style.Render(m.glyph) + " " + m.body.Render(fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { fmt.Println(markDone.line(format, args...)) }
func printError(format string, args ...any)   { fmt.Println(markFail.line(format, args...)) }
func printWarning(format string, args ...any) { fmt.Println(markWarn.line(format, args...)) }
func printInfo(format string, args ...any)    { fmt.Println(markNote.line(format, args...)) }

// printDetail prints an indented, muted line under a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a path that was written.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleLabel.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints the import summary line and where part measurements
// came from.
func printStats(st instructions.Stats, cs render.Stats) {
	fmt.Println("  " + bookSummary(st, cs))
	printDetail("rasterized %d, from cache %d, reused %d, parsed in %s, laid out in %s",
		cs.Renders, cs.Stored, cs.Hits, roundDuration(st.ParseTime), roundDuration(st.LayoutTime))
}

// bookSummary joins the book counts with a measurement source: "cached"
// when every part came from the store, otherwise the number rasterized.
func bookSummary(st instructions.Stats, cs render.Stats) string {
	counts := []string{plural(st.Pages, "page"), plural(st.Steps, "step")}
	if st.Submodels > 0 {
		counts = append(counts, plural(st.Submodels, "submodel"))
	}
	counts = append(counts, plural(st.Parts, "part"))

	var fields []string
	for _, c := range counts {
		fields = append(fields, StyleDim.Render(c))
	}
	if st.Missing > 0 {
		fields = append(fields, StyleWarning.Render(fmt.Sprintf("%d missing", st.Missing)))
	}
	if cs.Renders == 0 && cs.Stored > 0 {
		fields = append(fields, StyleSuccess.Render("cached"))
	} else {
		fields = append(fields, StyleDim.Render(fmt.Sprintf("%d measured", cs.Renders)))
	}
	return strings.Join(fields, StyleDim.Render(" · "))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func roundDuration(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
