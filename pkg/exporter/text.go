package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/exec/portscope/internal/core"
	"github.com/exec/portscope/pkg/services"
)

// TextExporter prints scan results as a plain, human-readable stream, one
// line per result as it arrives. It is the default output when no --output
// format is requested.
type TextExporter struct {
	writer   io.Writer
	onlyOpen bool
	open     int
	closed   int
	filtered int
}

// NewTextExporter creates a text exporter writing to w. When onlyOpen is
// true, closed/filtered ports are counted but not printed.
func NewTextExporter(w io.Writer, onlyOpen bool) *TextExporter {
	return &TextExporter{writer: w, onlyOpen: onlyOpen}
}

// Export prints each result event as it arrives.
func (e *TextExporter) Export(events <-chan core.Event) {
	for event := range events {
		if event.Kind != core.EventKindResult {
			continue
		}
		r := *event.Result

		switch r.Status {
		case core.StatusOpen:
			e.open++
		case core.StatusClosed:
			e.closed++
		case core.StatusFiltered:
			e.filtered++
		}

		if e.onlyOpen && r.Status != core.StatusOpen {
			continue
		}

		svc := ""
		if r.Service != nil {
			svc = r.Service.Name
		}
		if svc == "" {
			svc = strings.TrimSpace(r.Banner)
		}
		if svc == "" {
			svc = services.GetName(r.Port)
		}

		line := fmt.Sprintf("%-20s %5d/%-4s %-9s", r.Host, r.Port, strings.ToLower(string(r.Technique)), r.Status)
		if svc != "" {
			line += "  " + svc
		}
		fmt.Fprintln(e.writer, line)
	}
}

// Close prints a final summary line.
func (e *TextExporter) Close() error {
	fmt.Fprintf(e.writer, "\nscanned: open=%d closed=%d filtered=%d\n", e.open, e.closed, e.filtered)
	return nil
}
