package driver

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ember/internal/diag"
	"ember/internal/source"
)

// ColorMode controls diagnostic rendering.
type ColorMode uint8

const (
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

// PrintDiagnostics renders the bag in file:line:col order.
func PrintDiagnostics(w io.Writer, fset *source.FileSet, bag *diag.Bag, mode ColorMode) {
	switch mode {
	case ColorOn:
		color.NoColor = false
	case ColorOff:
		color.NoColor = true
	}

	errColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow, color.Bold)
	infoColor := color.New(color.FgCyan)

	bag.SortBySpan()
	for _, d := range bag.Items() {
		pos := fset.SpanPosition(d.Primary)
		file := fset.Get(d.Primary.File)

		var label string
		switch d.Severity {
		case diag.SevError:
			label = errColor.Sprint("error")
		case diag.SevWarning:
			label = warnColor.Sprint("warning")
		default:
			label = infoColor.Sprint("info")
		}

		fmt.Fprintf(w, "%s:%d:%d: %s[%s]: %s\n", file.Path, pos.Line, pos.Col, label, d.Code, d.Message)
		for _, note := range d.Notes {
			npos := fset.SpanPosition(note.Span)
			fmt.Fprintf(w, "  note: %d:%d: %s\n", npos.Line, npos.Col, note.Msg)
		}
	}
}
