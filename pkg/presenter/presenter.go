// Package presenter writes user-facing CLI output: status lines on stderr
// and ranked results on stdout, colored when the terminal allows it.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode selects when output is colored
type ColorMode int

const (
	// ColorAuto colors only when writing to a terminal
	ColorAuto ColorMode = iota
	// ColorAlways forces color
	ColorAlways
	// ColorNever disables color
	ColorNever
)

// ScoreRow is one line of a ranking
type ScoreRow struct {
	ID     string
	Score  float64
	Detail string
}

// TerminalPresenter renders to a pair of writers
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// New writes to stdout and stderr with the color mode from the environment
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a presenter over custom writers
func NewWithOptions(output, errorOutput io.Writer, mode ColorMode) *TerminalPresenter {
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   mode,
	}
}

// detectColorMode honors NO_COLOR, then SKILLROUTE_COLOR
func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch os.Getenv("SKILLROUTE_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error reports err on the error writer, even in quiet mode
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed, color.Bold)
	if context != "" {
		c.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
		return
	}
	c.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
}

// Success reports a completed action on the error writer so stdout stays
// clean for payloads
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.errorOutput, "✓ %s\n", message)
}

// Warning reports a non-fatal problem on the error writer
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.errorOutput, "⚠ %s\n", message)
}

// Info writes a plain line to the output
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section writes an underlined header
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	c := color.New(color.Bold)
	c.Fprintf(p.output, "%s\n", title)
	c.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

// Scores writes a ranking, best first, with a ten-cell bar per score
func (p *TerminalPresenter) Scores(rows []ScoreRow) {
	if len(rows) == 0 {
		p.Warning("no documents matched")
		return
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r.ID))
	}

	idColor := color.New(color.FgCyan)
	barColor := color.New(color.FgGreen)
	for i, r := range rows {
		filled := int(r.Score*10 + 0.5)
		fmt.Fprintf(p.output, "%2d. ", i+1)
		idColor.Fprintf(p.output, "%-*s", width, r.ID)
		fmt.Fprintf(p.output, "  %.3f ", r.Score)
		barColor.Fprint(p.output, strings.Repeat("█", filled))
		fmt.Fprint(p.output, strings.Repeat("░", 10-filled))
		if r.Detail != "" {
			fmt.Fprintf(p.output, "  %s", r.Detail)
		}
		fmt.Fprintln(p.output)
	}
}

// Separator writes a horizontal rule
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet suppresses everything except errors and rankings
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet reports whether quiet mode is on
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter = New()

// Error reports through the default presenter
func Error(err error, context string) { defaultPresenter.Error(err, context) }

// Success reports through the default presenter
func Success(message string) { defaultPresenter.Success(message) }

// Warning reports through the default presenter
func Warning(message string) { defaultPresenter.Warning(message) }

// Info reports through the default presenter
func Info(message string) { defaultPresenter.Info(message) }

// Section reports through the default presenter
func Section(title string) { defaultPresenter.Section(title) }

// Scores reports through the default presenter
func Scores(rows []ScoreRow) { defaultPresenter.Scores(rows) }

// Separator reports through the default presenter
func Separator() { defaultPresenter.Separator() }

// SetQuiet sets quiet mode on the default presenter
func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }
