// Package runner executes registered probes one at a time against a device
// and collects their outcome.
//
// Each case runs with its own capture.Context. The runner logs
// "START_TEST <name>" before a case and "END_TEST <name> time_ns <n>"
// after it, the markers host tooling greps for. A failed assertion ends the
// case and, unless Options.Continue is set, the whole run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/spf13/afero"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// ErrFailed is returned by Run when at least one case failed.
var ErrFailed = errors.New("runner: test failed")

// Options configures a Runner.
type Options struct {
	// Continue keeps running after a failed case.
	Continue bool

	// Capture is passed to every test context. Capture.Dir is the
	// artifact root.
	Capture capture.Options
}

// Runner runs cases sequentially on one device.
type Runner struct {
	Device  pvr.Device
	FS      afero.Fs // nil means the OS filesystem
	Options Options
}

// Result is the outcome of one case.
type Result struct {
	Name     string
	Flags    Flags
	Duration time.Duration
	Failed   bool
	Err      error // assertion or panic that ended the case
}

// Run executes cases in order. The report covers every case that was
// started; the error is ErrFailed (wrapping the first failure) when any
// case failed, or the context error when ctx was cancelled between cases.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	fs := r.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	rep := &Report{Started: time.Now()}
	defer func() { rep.Elapsed = time.Since(rep.Started) }()

	var first error
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := r.runCase(fs, c)
		rep.Results = append(rep.Results, res)
		if !res.Failed {
			continue
		}
		if first == nil {
			first = res.Err
			if first == nil {
				first = fmt.Errorf("%s: assertion failed", res.Name)
			}
		}
		if !r.Options.Continue {
			break
		}
	}
	if first != nil {
		return rep, fmt.Errorf("%w: %w", ErrFailed, first)
	}
	return rep, nil
}

func (r *Runner) runCase(fs afero.Fs, c Case) (res Result) {
	logger := dcpvr.Logger()
	res = Result{Name: c.Name, Flags: c.Flags}

	logger.Info("START_TEST "+c.Name, "test", c.Name)
	tc := capture.New(fs, r.Device, c.Name, r.Options.Capture)
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		if v := recover(); v != nil {
			res.Failed = true
			if ae, ok := capture.AsAssertion(v); ok {
				res.Err = ae
			} else {
				res.Err = fmt.Errorf("%s: panic: %v", c.Name, v)
				tc.Log().Error("runner: test panicked", "panic", v, "stack", string(debug.Stack()))
			}
		}
		if tc.Failed() {
			res.Failed = true
		}
		ns := res.Duration.Nanoseconds()
		logger.Info(fmt.Sprintf("END_TEST %s time_ns %d", c.Name, ns),
			"test", c.Name, "time_ns", ns, "failed", res.Failed)
		if err := tc.Close(); err != nil {
			logger.Warn("runner: closing test log", "test", c.Name, "err", err)
		}
	}()

	c.Func(tc)
	return res
}
