package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"splitget/internal"
)

// Prompter reads answers to interactive questions, one line each
type Prompter struct {
	reader  *bufio.Reader
	printer *Printer
}

// NewPrompter creates a prompter reading from in and printing questions through printer
func NewPrompter(in io.Reader, printer *Printer) *Prompter {
	return &Prompter{
		reader:  bufio.NewReader(in),
		printer: printer,
	}
}

// Ask prints question and returns the trimmed line the user typed
func (p *Prompter) Ask(question string) (string, error) {
	p.printer.Prompt(question)

	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", internal.NewValidationError("input", "no answer given").
				WithSuggestion("Pass the value as an argument or flag when stdin is not interactive")
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// AskURL asks for the address of the file to download
func (p *Prompter) AskURL() (string, error) {
	return p.Ask("url: ")
}

// AskConnections asks for the connection count and parses it
func (p *Prompter) AskConnections() (int, error) {
	answer, err := p.Ask(fmt.Sprintf("max connections (limit %d): ", internal.MaxConnections))
	if err != nil {
		return 0, err
	}
	return ParseConnections(answer)
}

// ParseConnections converts a typed connection count. Values above the
// limit are capped; values below 1 are raised to 1.
func ParseConnections(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, internal.NewValidationErrorWithValue("connections", "Enter a valid number", s).
			WithSuggestion(fmt.Sprintf("Use a whole number between 1 and %d", internal.MaxConnections))
	}
	return internal.ClampConnections(n), nil
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
