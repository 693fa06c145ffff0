package templator

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffOp tells whether a diff line was removed or added.
type DiffOp byte

const (
	// DiffRemoved marks a line of the original text.
	DiffRemoved DiffOp = '-'
	// DiffAdded marks a line of the resolved text.
	DiffAdded DiffOp = '+'
)

// DiffLine is one changed line of a diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// String renders the line with its "-" or "+" marker.
func (l DiffLine) String() string {
	return string(l.Op) + l.Text
}

// Diff holds the changed lines of one template.
type Diff struct {
	Name  string
	Lines []DiffLine
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Lines) == 0
}

// RenderDiff returns the lines that differ between original and resolved,
// without context, in document order. Leading and trailing blank lines of
// both texts are ignored.
func RenderDiff(name, original, resolved string) Diff {
	a := splitLines(original)
	b := splitLines(resolved)

	var lines []DiffLine
	for _, group := range difflib.NewMatcher(a, b).GetGroupedOpCodes(0) {
		for _, op := range group {
			if op.Tag == 'r' || op.Tag == 'd' {
				for _, line := range a[op.I1:op.I2] {
					lines = append(lines, DiffLine{Op: DiffRemoved, Text: line})
				}
			}
			if op.Tag == 'r' || op.Tag == 'i' {
				for _, line := range b[op.J1:op.J2] {
					lines = append(lines, DiffLine{Op: DiffAdded, Text: line})
				}
			}
		}
	}

	return Diff{Name: name, Lines: lines}
}

// splitLines trims blank lines at both ends of text and splits the rest.
func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// DiffWriter prints diff lines, coloring the markers when the target is a terminal.
type DiffWriter struct {
	out *termenv.Output
}

// NewDiffWriter returns a writer printing to w. Markers are colored when color is set.
func NewDiffWriter(w io.Writer, color bool) *DiffWriter {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI
	}

	return &DiffWriter{out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

// Write prints the name of diff on its own line, bold on a terminal,
// followed by the changed lines, one per row.
func (d *DiffWriter) Write(diff Diff) error {
	if diff.Name != "" {
		if _, err := fmt.Fprintf(d.out, "%s\n", d.out.String(diff.Name).Bold()); err != nil {
			return err
		}
	}

	for _, line := range diff.Lines {
		color := "2" // green
		if line.Op == DiffRemoved {
			color = "1" // red
		}

		marker := d.out.String(string(line.Op)).Foreground(d.out.Color(color))
		if _, err := fmt.Fprintf(d.out, "%s%s\n", marker, line.Text); err != nil {
			return err
		}
	}

	return nil
}
