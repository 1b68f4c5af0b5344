// Command pvrtests runs the PowerVR2 probes and writes their artifacts.
//
// Without -sim the hardware device is opened, which only works in a
// console build. Probes are selected by name with -run and by category
// with -flags; Lua probes are added with -script.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/text/language"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/internal/script"
	"github.com/gh-sh4/dc-pvr-tests/internal/sim"
	"github.com/gh-sh4/dc-pvr-tests/probes"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/runner"
)

// listFlag collects a repeatable, comma separated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(s string) error {
	for v := range strings.SplitSeq(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

func main() {
	var (
		run      listFlag
		scripts  listFlag
		flagsArg = flag.String("flags", "", "select probes by category: ta, isp, bench, all")
		out      = flag.String("out", "out", "artifact directory")
		list     = flag.Bool("list", false, "list the selected probes and exit")
		timeout  = flag.Duration("timeout", 0, "abort the run after this long (0 for no limit)")
		useSim   = flag.Bool("sim", false, "run against the software model")
		cont     = flag.Bool("continue", false, "keep going after a failed probe")
		format   = flag.String("format", "ppm", "framebuffer image format: ppm, png, bmp, tiff")
		scale    = flag.Int("scale", 1, "framebuffer image scale factor")
		verbose  = flag.Bool("v", false, "log packet and register traffic")
		lang     = flag.String("lang", "en", "language tag for the summary's number format")
	)
	flag.Var(&run, "run", "comma separated probe names (default all but benchmarks)")
	flag.Var(&scripts, "script", "Lua probe to add (repeatable)")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	dcpvr.SetLogger(newLogger(level))

	reg := runner.NewRegistry()
	if err := probes.Register(reg); err != nil {
		log.Fatalf("register probes: %v", err)
	}
	for _, name := range scripts {
		c, err := script.Load(name)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := reg.Add(c); err != nil {
			log.Fatalf("%s: %v", name, err)
		}
	}

	sel, err := runner.ParseFlags(*flagsArg)
	if err != nil {
		log.Fatalf("-flags: %v", err)
	}
	cases, err := reg.Select(run, sel)
	if err != nil {
		log.Fatalf("select: %v", err)
	}

	if *list {
		for _, c := range cases {
			fmt.Printf("%-24s %-10v %s\n", c.Name, c.Flags, c.Description)
		}
		return
	}
	if len(cases) == 0 {
		log.Fatal("no probes selected")
	}

	imgFormat, err := capture.ParseImageFormat(*format)
	if err != nil {
		log.Fatalf("-format: %v", err)
	}
	tag, err := language.Parse(*lang)
	if err != nil {
		tag = language.English
	}

	dev, closeDev, err := openDevice(*useSim)
	if err != nil {
		log.Fatalf("open device: %v (use -sim to run without hardware)", err)
	}
	defer closeDev()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	r := runner.Runner{
		Device: dev,
		Options: runner.Options{
			Continue: *cont,
			Capture: capture.Options{
				Dir:    *out,
				Format: imgFormat,
				Scale:  *scale,
				Level:  level,
			},
		},
	}
	start := time.Now()
	rep, err := r.Run(ctx, cases)
	if rep != nil {
		if serr := rep.Summary(os.Stdout, tag); serr != nil {
			log.Printf("summary: %v", serr)
		}
	}
	switch {
	case err == nil:
		dcpvr.Logger().Info("pvrtests: all probes passed", "count", len(cases), "elapsed", time.Since(start))
	case errors.Is(err, runner.ErrFailed):
		dcpvr.Logger().Error("pvrtests: failed", "err", err)
		closeDev()
		os.Exit(1)
	default:
		dcpvr.Logger().Error("pvrtests: run aborted", "err", err)
		closeDev()
		os.Exit(2)
	}
}

// newLogger logs text to an interactive stderr and JSON otherwise, so
// captured console output stays machine readable.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func openDevice(useSim bool) (pvr.Device, func(), error) {
	if useSim {
		d := sim.New(sim.Config{})
		return d, func() { _ = d.Close() }, nil
	}
	d, err := pvr.Open()
	if err != nil {
		return nil, nil, err
	}
	return d, func() {}, nil
}
