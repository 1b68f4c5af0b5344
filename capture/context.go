// Package capture is the per-test harness: logging, assertions, register
// and VRAM snapshots, and framebuffer export.
//
// A Context is created by the runner for each test case. Artifacts go to
// <Dir>/<test>/ on an afero filesystem, so tests can run against
// afero.NewMemMapFs and the command line tools against afero.NewOsFs.
//
// The offline side of the package reads those artifacts back: LoadDump
// rebuilds a snapshot as a scene.Memory, Archive caches them, Diff compares
// two snapshots and Overlay annotates a decoded framebuffer with the tile
// grid.
package capture

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/spf13/afero"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// Options configures every Context created from it.
type Options struct {
	// Dir is the artifact root. Empty means the filesystem's current
	// directory.
	Dir string

	// Format is used by ExportImage. The zero value is PPM.
	Format ImageFormat

	// Scale enlarges exported images by an integer factor with
	// nearest-neighbour sampling. Values below 2 export at native size.
	Scale int

	// Level is the minimum level written to the per-test log file.
	Level slog.Level
}

// Context is handed to a test function. It is not safe for concurrent use
// apart from Log, whose logger may be used from any goroutine.
type Context struct {
	name string
	dev  pvr.Device
	fs   afero.Fs
	dir  string
	opts Options

	logFile afero.File
	logger  *slog.Logger

	abortOnFailure bool
	failed         bool
}

// New creates the test directory and log file for test name. Failure to
// create them is logged and the test proceeds with the process logger
// only.
func New(fs afero.Fs, dev pvr.Device, name string, opts Options) *Context {
	c := &Context{
		name:           name,
		dev:            dev,
		fs:             fs,
		dir:            path.Join(opts.Dir, name),
		opts:           opts,
		abortOnFailure: true,
	}
	parent := dcpvr.Logger()
	c.logger = parent.With("test", name)

	if err := fs.MkdirAll(c.dir, 0o755); err != nil {
		parent.Warn("capture: cannot create test directory", "dir", c.dir, "err", err)
		return c
	}
	logPath := path.Join(c.dir, name+".log")
	f, err := fs.Create(logPath)
	if err != nil {
		parent.Warn("capture: cannot create log file", "path", logPath, "err", err)
		return c
	}
	c.logFile = f
	file := slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.Level})
	c.logger = slog.New(teeHandler{file, parent.Handler()}).With("test", name)
	return c
}

// Name returns the test name.
func (c *Context) Name() string { return c.name }

// Device returns the device under test.
func (c *Context) Device() pvr.Device { return c.dev }

// Dir returns the directory holding the test's artifacts.
func (c *Context) Dir() string { return c.dir }

// Log returns the per-test logger. Records go to the test's log file and
// to the process logger.
func (c *Context) Log() *slog.Logger { return c.logger }

// Logf logs a formatted message at info level.
func (c *Context) Logf(format string, args ...any) {
	c.logger.Info(fmt.Sprintf(format, args...))
}

// SetAbortOnFailure controls whether a failed assertion stops the test.
// It is on by default.
func (c *Context) SetAbortOnFailure(abort bool) {
	c.abortOnFailure = abort
}

// Failed reports whether any assertion has failed.
func (c *Context) Failed() bool { return c.failed }

// Close flushes and closes the log file.
func (c *Context) Close() error {
	if c.logFile == nil {
		return nil
	}
	err := c.logFile.Close()
	c.logFile = nil
	c.logger = dcpvr.Logger().With("test", c.name)
	return err
}
