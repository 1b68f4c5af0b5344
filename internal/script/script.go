// Package script loads probes written in Lua.
//
// A script defines a few globals and a run function:
//
//	name = "ta_lua_single_poly"
//	flags = "ta"
//	description = "single triangle in tile 0"
//
//	function run()
//	  ta_list_init(2, 2)
//	  ta_header()
//	  ta_vertex(0, 0, 1)
//	  ta_vertex(0, 16, 1)
//	  ta_vertex(16, 16, 1, 0xFF0000FF, true)
//	  ta_end()
//	  wait("opaque")
//	  local e = ol_entries(0x100000)
//	  assert(#e == 2 and e[1].kind == "strip", "one strip in tile 0")
//	end
//
// The functions available to run are listed in api.go. Each run gets a
// fresh interpreter bound to the test's capture.Context.
package script

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/runner"
)

// ErrNoRun is returned for a script without a global run function.
var ErrNoRun = errors.New("script: no run function")

// Load reads a script from the OS filesystem.
func Load(name string) (runner.Case, error) {
	return LoadFS(afero.NewOsFs(), name)
}

// LoadFS reads a script and returns it as a test case. The script's top
// level is executed once to read its globals; the device API is not
// available there.
func LoadFS(fs afero.Fs, name string) (runner.Case, error) {
	src, err := afero.ReadFile(fs, name)
	if err != nil {
		return runner.Case{}, fmt.Errorf("script: %w", err)
	}
	return Parse(name, string(src))
}

// Parse builds a test case from script source. name is used in error
// messages and, without a name global, as the case name.
func Parse(name, src string) (runner.Case, error) {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return runner.Case{}, fmt.Errorf("script: %s: %w", name, err)
	}
	if L.GetGlobal("run").Type() != lua.LTFunction {
		return runner.Case{}, fmt.Errorf("%w: %s", ErrNoRun, name)
	}

	c := runner.Case{
		Name:        strings.TrimSuffix(path.Base(name), path.Ext(name)),
		Description: lua.LVAsString(L.GetGlobal("description")),
	}
	if s := lua.LVAsString(L.GetGlobal("name")); s != "" {
		c.Name = s
	}
	switch v := L.GetGlobal("flags").(type) {
	case lua.LNumber:
		c.Flags = runner.Flags(uint32(v))
	case lua.LString:
		f, err := runner.ParseFlags(string(v))
		if err != nil {
			return runner.Case{}, fmt.Errorf("script: %s: %w", name, err)
		}
		c.Flags = f
	}

	c.Func = func(tc *capture.Context) { execute(tc, name, src) }
	return c, nil
}

// execute runs the script's run function against tc. A failed Lua assert
// unwinds the interpreter first and is then reported through tc, so an
// aborting failure panics outside the Lua call stack.
func execute(tc *capture.Context, name, src string) {
	L := lua.NewState()
	defer L.Close()

	e := newEnv(tc)
	defer e.close()
	e.install(L)

	if err := L.DoString(src); err != nil {
		tc.NoError(err, "load "+name)
		return
	}
	err := L.CallByParam(lua.P{Fn: L.GetGlobal("run"), NRet: 0, Protect: true})
	if e.failure != "" {
		tc.Assert(false, e.failure)
		return
	}
	tc.NoError(err, "run "+name)
}
