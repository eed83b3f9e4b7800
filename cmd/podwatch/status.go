package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"podwatch/internal/workflow"
)

type severity uint8

const (
	sevInfo severity = iota
	sevOK
	sevWarn
	sevError
)

var severityStyles = map[severity]struct{ tag, color string }{
	sevInfo:  {"INFO", "\x1b[34m"},
	sevOK:    {"OK", "\x1b[32m"},
	sevWarn:  {"WARN", "\x1b[33m"},
	sevError: {"ERROR", "\x1b[31m"},
}

const labelWidth = 16

// statusPrinter writes aligned "label: [TAG] message" lines, colored when the
// destination is a terminal.
type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) statusPrinter {
	p := statusPrinter{out: out}
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		p.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return p
}

func (p statusPrinter) line(label string, sev severity, format string, args ...any) {
	style := severityStyles[sev]
	text := strings.TrimRight(fmt.Sprintf("  %-*s [%s] %s", labelWidth, label+":", style.tag, fmt.Sprintf(format, args...)), " ")
	if p.color {
		text = style.color + text + "\x1b[0m"
	}
	fmt.Fprintln(p.out, text)
}

func warnIf(n int, sev severity) severity {
	if n > 0 {
		return sev
	}
	return sevOK
}

// renderRunSummary prints the run outcome, one status line per concern.
func renderRunSummary(out io.Writer, s *workflow.Summary) {
	runID := s.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	fmt.Fprintf(out, "Run %s finished in %s", runID, s.Duration().Round(time.Millisecond))
	if s.Canceled {
		fmt.Fprint(out, " (cancelled)")
	}
	fmt.Fprintln(out)

	p := newStatusPrinter(out)
	p.line("Feeds", warnIf(len(s.FeedFailures), sevWarn), "%d of %d fetched", s.FeedsFetched, s.Podcasts)
	p.line("Episodes", sevInfo, "%d seen, %d new, %d queued", s.Discovered, s.New, s.Queued)
	p.line("Analyzed", sevOK, "%d", s.Analyzed)
	if s.Skipped > 0 {
		p.line("Skipped", sevInfo, "%d (too little text)", s.Skipped)
	}
	if s.InFlight > 0 {
		p.line("In flight", sevInfo, "%d (held by another run)", s.InFlight)
	}
	if s.AlreadyAnalyzed > 0 {
		p.line("Already analyzed", sevInfo, "%d (finished by another run)", s.AlreadyAnalyzed)
	}
	p.line("Failed", warnIf(s.Failed, sevError), "%d", s.Failed)

	for _, f := range s.FeedFailures {
		p.line("Feed failure", sevWarn, "%s (%s)", f.Podcast, f.Category)
	}
	for _, category := range s.FailureCategories() {
		p.line("Failure", sevError, "%s x%d", category, s.Failures[category])
	}
	for _, title := range s.HighThreat {
		p.line("High threat", sevWarn, "%s", title)
	}
}
