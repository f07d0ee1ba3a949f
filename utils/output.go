package utils

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37")) // dark green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
)

// Printer writes the user-facing status lines of a download.
// Quiet suppresses everything except errors.
type Printer struct {
	out   io.Writer
	quiet bool
	mutex sync.Mutex
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, quiet bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out, quiet: quiet}
}

func (p *Printer) line(style lipgloss.Style, prefix, format string, args ...interface{}) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprintln(p.out, style.Render(prefix+" "+fmt.Sprintf(format, args...)))
}

// Info prints a "[+]" status line
func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.line(infoStyle, "[+]", format, args...)
}

// Success prints a "[+]" line in the success color
func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.line(successStyle, "[+]", format, args...)
}

// Warning prints a "[!]" line
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.line(warningStyle, "[!]", format, args...)
}

// Error prints a "[x]" line, even in quiet mode
func (p *Printer) Error(format string, args ...interface{}) {
	p.line(errorStyle, "[x]", format, args...)
}

// Prompt prints a "[?]" question without a trailing newline
func (p *Printer) Prompt(question string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprint(p.out, promptStyle.Render("[?] "+question))
}
