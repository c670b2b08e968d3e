package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	yellow = lipgloss.Color("#F5C542")

	styleWarning = lipgloss.NewStyle().
			Bold(true).
			Foreground(yellow)

	styleSendDetail = lipgloss.NewStyle().
			PaddingLeft(2)
)

// sendWarning renders the banner shown above the confirm prompt.
func sendWarning(description string) string {
	return "\n" + styleWarning.Render("On-chain transaction") + "\n\n" +
		styleSendDetail.Render(description) + "\n\n"
}

// Confirmer asks the operator before a call that writes to the ledger.
type Confirmer interface {
	// IsInteractive reports whether a prompt can be shown at all.
	IsInteractive() bool
	// Confirm shows title and description and returns the answer.
	Confirm(title, description string) (bool, error)
}

// TerminalPrompter provides interactive terminal prompting.
type TerminalPrompter struct {
	w io.Writer
}

// NewTerminalPrompter creates a TerminalPrompter that writes warnings to w.
func NewTerminalPrompter(w io.Writer) *TerminalPrompter {
	return &TerminalPrompter{w: w}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Confirm asks a yes/no question. The default answer is no.
func (p *TerminalPrompter) Confirm(title, description string) (bool, error) {
	fmt.Fprint(p.w, sendWarning(description))

	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Send").
		Negative("Cancel").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, err
	}
	return confirmed, nil
}
