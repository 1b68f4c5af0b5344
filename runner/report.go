package runner

import (
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report collects the results of one Run.
type Report struct {
	Started time.Time
	Elapsed time.Duration
	Results []Result
}

// Passed returns the number of cases that did not fail.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Failed {
			n++
		}
	}
	return n
}

// Failed returns the number of failed cases.
func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// Summary writes one line per case followed by totals. Durations are
// printed in nanoseconds with the digit grouping of tag; language.Und
// falls back to English.
func (r *Report) Summary(w io.Writer, tag language.Tag) error {
	if tag == language.Und {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)

	p.Fprintf(tw, "TEST\tFLAGS\tTIME (ns)\tRESULT\t\n")
	for _, res := range r.Results {
		status := "ok"
		if res.Failed {
			status = "FAIL"
		}
		p.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", res.Name, res.Flags, res.Duration.Nanoseconds(), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := p.Fprintf(w, "%d passed, %d failed, %d ns total\n",
		r.Passed(), r.Failed(), r.Elapsed.Nanoseconds())
	return err
}
