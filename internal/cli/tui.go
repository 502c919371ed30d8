package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/edit"
	"github.com/matzehuels/brickbook/pkg/instructions"
)

// List styles
var (
	listNormalStyle = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [book.brkb]",
		Short: "Page through an instruction book interactively",
		Long: `Page through an instruction book.

Pages can be locked and unlocked, edits undone and redone, and the book
saved without leaving the browser.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeCache, err := c.openBook(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			defer closeCache()

			final, err := tea.NewProgram(NewPageListModel(cmd.Context(), in, args[0])).Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(PageListModel); ok && fm.In.Modified() {
				printWarning("Unsaved changes discarded")
			}
			return nil
		},
	}
}

// =============================================================================
// PageListModel - Interactive page browser
// =============================================================================

// PageListModel is the bubbletea model for browsing and editing the pages
// of a book.
type PageListModel struct {
	In     *instructions.Instructions
	Path   string
	Cursor int
	Height int
	Offset int
	Status string
	Err    error

	ctx context.Context
}

// NewPageListModel creates a page browser for the book loaded in in. Saves
// go to path.
func NewPageListModel(ctx context.Context, in *instructions.Instructions, path string) PageListModel {
	return PageListModel{In: in, Path: path, Height: 15, ctx: ctx}
}

func (m PageListModel) pages() []*document.Page {
	if d := m.In.Document(); d != nil {
		return d.Pages()
	}
	return nil
}

func (m PageListModel) Init() tea.Cmd {
	return nil
}

func (m PageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		pages := m.pages()
		m.Status, m.Err = "", nil
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(pages)-1 {
				m.Cursor++
			}
		case "l":
			if m.Cursor < len(pages) {
				p := pages[m.Cursor]
				m.apply(&edit.LockPage{Page: p, Locked: !p.Locked})
			}
		case "u":
			m.Err = m.In.Undo(m.ctx)
			m.Status = "undone"
		case "r":
			m.Err = m.In.Redo(m.ctx)
			m.Status = "redone"
		case "s":
			m.Err = m.In.Save(m.Path)
			m.Status = "saved " + m.Path
		}
		m.clamp()
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
		m.clamp()
	}
	return m, nil
}

func (m *PageListModel) apply(cmd edit.Command) {
	m.Err = m.In.Do(m.ctx, cmd)
	m.Status = cmd.Kind()
}

// clamp keeps the cursor on a page and inside the visible window.
func (m *PageListModel) clamp() {
	n := len(m.pages())
	m.Cursor = max(min(m.Cursor, n-1), 0)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m PageListModel) View() string {
	var b strings.Builder
	pages := m.pages()

	title := m.Path
	if m.In.Modified() {
		title += " *"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  l lock  u undo  r redo  s save  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(pages))
	b.WriteString(pageTable(pages[m.Offset:end], m.Cursor-m.Offset).Render())
	b.WriteString("\n")

	if m.Cursor < len(pages) {
		for _, s := range pages[m.Cursor].Steps {
			line := fmt.Sprintf("  step %d  %d parts  csi %s", s.Number, len(s.Parts), fmtSize(s.CSI.Rect.W, s.CSI.Rect.H))
			if len(s.Callouts) > 0 {
				line += fmt.Sprintf("  %d callouts", len(s.Callouts))
			}
			b.WriteString(listNormalStyle.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.Err != nil:
		b.WriteString(listErrorStyle.Render("  " + m.Err.Error()))
	case m.Status != "":
		b.WriteString(StyleSuccess.Render("  " + m.Status))
	default:
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(pages))))
	}
	if h := m.In.History(); h != nil && h.CanUndo() {
		b.WriteString(listDimStyle.Render("  undo: " + h.UndoKind()))
	}
	return b.String()
}

func fmtSize(w, h float64) string {
	return fmt.Sprintf("%.0fx%.0f", w, h)
}
