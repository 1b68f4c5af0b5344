package script

import (
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/event"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

var signalNames = map[string]event.Signal{
	"opaque":      event.OpaqueListBinned,
	"translucent": event.TranslucentListBinned,
	"isp":         event.ISPRenderDone,
	"tsp":         event.TSPRenderDone,
	"video":       event.RenderDoneVideo,
}

var listNames = map[string]ta.ListType{
	"opaque":               ta.ListOpaque,
	"opaque_modifier":      ta.ListOpaqueModifier,
	"translucent":          ta.ListTranslucent,
	"translucent_modifier": ta.ListTranslucentModifier,
	"punch_through":        ta.ListPunchThrough,
}

var clipNames = map[string]ta.UserClipMode{
	"disabled": ta.UserClipDisabled,
	"inside":   ta.UserClipInside,
	"outside":  ta.UserClipOutside,
}

// env is the state shared by the API functions of one run.
type env struct {
	tc    *capture.Context
	dev   pvr.Device
	enc   *ta.Encoder
	ev    *event.Set
	evErr error
	abort bool

	// failure is the message of an aborting assert.
	failure string
}

func newEnv(tc *capture.Context) *env {
	e := &env{tc: tc, dev: tc.Device(), enc: ta.NewEncoder(tc.Device()), abort: true}
	e.ev, e.evErr = event.New(e.dev, event.Options{Video: true})
	return e
}

func (e *env) close() {
	if e.ev != nil {
		_ = e.ev.Close()
	}
}

func (e *env) install(L *lua.LState) {
	api := map[string]lua.LGFunction{
		"reg_read":             e.regRead,
		"reg_write":            e.regWrite,
		"vram_read32":          e.vramRead32,
		"vram_write32":         e.vramWrite32,
		"vram_clear":           e.vramClear,
		"ta_list_init":         e.taListInit,
		"ta_clip":              e.taClip,
		"ta_header":            e.taHeader,
		"ta_vertex":            e.taVertex,
		"ta_end":               e.taEnd,
		"wait":                 e.wait,
		"assert":               e.assert,
		"set_abort_on_failure": e.setAbort,
		"snapshot":             e.snapshot,
		"log":                  e.log,
		"ol_entries":           e.olEntries,
	}
	for name, fn := range api {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func checkU32(L *lua.LState, n int) uint32 {
	return uint32(int64(L.CheckNumber(n)))
}

// checkReg accepts a register mnemonic or an offset.
func checkReg(L *lua.LState, n int) pvr.Reg {
	switch v := L.Get(n).(type) {
	case lua.LString:
		r, ok := pvr.RegByName(string(v))
		if !ok {
			L.ArgError(n, "unknown register "+string(v))
		}
		return r
	case lua.LNumber:
		return pvr.Reg(uint32(int64(v)))
	}
	L.TypeError(n, lua.LTNumber)
	return 0
}

// reg_read(reg) -> value
func (e *env) regRead(L *lua.LState) int {
	L.Push(lua.LNumber(e.dev.ReadReg(checkReg(L, 1))))
	return 1
}

// reg_write(reg, value)
func (e *env) regWrite(L *lua.LState) int {
	e.dev.WriteReg(checkReg(L, 1), checkU32(L, 2))
	return 0
}

// vram_read32(addr) -> value
func (e *env) vramRead32(L *lua.LState) int {
	v, err := e.dev.ReadWord(checkU32(L, 1))
	if err != nil {
		L.RaiseError("vram_read32: %v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

// vram_write32(addr, value)
func (e *env) vramWrite32(L *lua.LState) int {
	if err := e.dev.WriteWord(checkU32(L, 1), checkU32(L, 2)); err != nil {
		L.RaiseError("vram_write32: %v", err)
	}
	return 0
}

// vram_clear(addr, bytes [, word])
func (e *env) vramClear(L *lua.LState) int {
	addr, n := checkU32(L, 1), L.CheckInt(2)
	v := uint32(int64(L.OptNumber(3, 0)))
	if err := e.dev.FillVRAM(addr, n, v); err != nil {
		L.RaiseError("vram_clear: %v", err)
	}
	return 0
}

// ta_list_init(tiles_x, tiles_y [, opb_words]) sets up the standard layout:
// ISP parameters in the first MiB, Object Lists in the second, overflow
// OPBs from 0x180000, only the opaque list enabled.
func (e *env) taListInit(L *lua.LState) int {
	cfg := ta.ListConfig{
		ISPLimit:    0x0010_0000,
		OLBase:      0x0010_0000,
		OLLimit:     0x0020_0000,
		NextOPBInit: 0x0018_0000,
		TilesX:      L.CheckInt(1),
		TilesY:      L.CheckInt(2),
	}
	cfg.OPB[ta.ListOpaque] = L.OptInt(3, 8)
	if err := cfg.Init(e.dev); err != nil {
		L.RaiseError("ta_list_init: %v", err)
	}
	return 0
}

// ta_clip(tx_min, ty_min, tx_max, ty_max)
func (e *env) taClip(L *lua.LState) int {
	e.enc.EmitClip(checkU32(L, 1), checkU32(L, 2), checkU32(L, 3), checkU32(L, 4))
	return 0
}

// ta_header([{list=, user_clip=, isp=, gouraud=}])
func (e *env) taHeader(L *lua.LState) int {
	h := ta.DefaultPolygonHeader()
	if t := L.OptTable(1, nil); t != nil {
		if v := t.RawGetString("list"); v != lua.LNil {
			l, ok := listNames[lua.LVAsString(v)]
			if !ok {
				L.ArgError(1, "unknown list "+lua.LVAsString(v))
			}
			h.ListType = l
		}
		if v := t.RawGetString("user_clip"); v != lua.LNil {
			m, ok := clipNames[lua.LVAsString(v)]
			if !ok {
				L.ArgError(1, "unknown user_clip "+lua.LVAsString(v))
			}
			h.UserClip = m
		}
		if v, ok := t.RawGetString("isp").(lua.LNumber); ok {
			h.ISP = uint32(int64(v))
		}
		h.Gouraud = lua.LVAsBool(t.RawGetString("gouraud"))
	}
	e.enc.EmitPolygonHeader(h)
	return 0
}

// ta_vertex(x, y, z [, color [, end_of_strip]])
func (e *env) taVertex(L *lua.LState) int {
	x, y, z := float32(L.CheckNumber(1)), float32(L.CheckNumber(2)), float32(L.CheckNumber(3))
	color := uint32(int64(L.OptNumber(4, 0)))
	e.enc.EmitVertex(x, y, z, color, L.OptBool(5, false))
	return 0
}

// ta_end()
func (e *env) taEnd(L *lua.LState) int {
	e.enc.EmitEndOfList()
	return 0
}

// wait(signals [, timeout_ms]) waits for every signal in a "|" separated
// list such as "isp|tsp".
func (e *env) wait(L *lua.LState) int {
	if e.ev == nil {
		L.RaiseError("wait: %v", e.evErr)
	}
	var mask event.Signal
	for name := range strings.SplitSeq(L.CheckString(1), "|") {
		sig, ok := signalNames[strings.TrimSpace(name)]
		if !ok {
			L.ArgError(1, "unknown signal "+name)
		}
		mask |= sig
	}
	timeout := time.Duration(L.OptInt(2, 0)) * time.Millisecond
	if err := e.ev.WaitFor(mask, timeout); err != nil {
		L.RaiseError("wait: %v", err)
	}
	return 0
}

// assert(cond [, message])
func (e *env) assert(L *lua.LState) int {
	if L.ToBool(1) {
		return 0
	}
	msg := L.OptString(2, "assertion failed")
	if !e.abort {
		e.tc.Assert(false, msg)
		return 0
	}
	e.failure = msg
	L.RaiseError("%s", msg)
	return 0
}

// set_abort_on_failure(bool)
func (e *env) setAbort(L *lua.LState) int {
	e.abort = L.ToBool(1)
	e.tc.SetAbortOnFailure(e.abort)
	return 0
}

// snapshot(tag)
func (e *env) snapshot(L *lua.LState) int {
	e.tc.Snapshot(L.CheckString(1))
	return 0
}

// log(message)
func (e *env) log(L *lua.LState) int {
	e.tc.Log().Info(L.CheckString(1), "source", "lua")
	return 0
}

// ol_entries(addr) -> {{addr=, raw=, kind=, text=}, ...}, the terminating
// link included.
func (e *env) olEntries(L *lua.LState) int {
	entries, err := scene.Entries(e.dev, checkU32(L, 1))
	if err != nil {
		L.RaiseError("ol_entries: %v", err)
	}
	out := L.NewTable()
	for _, loc := range entries {
		t := L.NewTable()
		t.RawSetString("addr", lua.LNumber(loc.Addr))
		t.RawSetString("raw", lua.LNumber(loc.Entry.Encode()))
		t.RawSetString("kind", lua.LString(entryKind(loc.Entry)))
		t.RawSetString("text", lua.LString(loc.Entry.String()))
		out.Append(t)
	}
	L.Push(out)
	return 1
}

func entryKind(e scene.Entry) string {
	switch e := e.(type) {
	case scene.TriangleStrip:
		return "strip"
	case scene.TriangleArray:
		return "triangles"
	case scene.QuadArray:
		return "quads"
	case scene.BlockLink:
		if e.EndOfList {
			return "end"
		}
		return "link"
	}
	return "unknown"
}
