package capture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/gh-sh4/dc-pvr-tests/internal/sim"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/render"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

func newContext(t *testing.T, fs afero.Fs, opts Options) (*Context, *sim.Device) {
	t.Helper()
	dev := sim.New(sim.Config{})
	t.Cleanup(func() { _ = dev.Close() })
	c := New(fs, dev, "probe", opts)
	t.Cleanup(func() { _ = c.Close() })
	return c, dev
}

func readFile(t *testing.T, fs afero.Fs, name string) []byte {
	t.Helper()
	b, err := afero.ReadFile(fs, name)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", name, err)
	}
	return b
}

func TestAssertAborts(t *testing.T) {
	c, _ := newContext(t, afero.NewMemMapFs(), Options{Dir: "out"})

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		c.Assert(true, "fine")
		c.Assert(false, "tile 0 empty")
		t.Error("Assert(false) returned with abort on failure set")
	}()

	ae, ok := AsAssertion(recovered)
	if !ok {
		t.Fatalf("recovered %v, want *AssertionError", recovered)
	}
	if ae.Test != "probe" || ae.Message != "tile 0 empty" {
		t.Errorf("AssertionError = %+v", ae)
	}
	if !c.Failed() {
		t.Error("Failed() = false after a failed assertion")
	}
}

func TestAssertContinues(t *testing.T) {
	c, _ := newContext(t, afero.NewMemMapFs(), Options{})
	c.SetAbortOnFailure(false)
	c.Assert(false, "first")
	c.NoError(errors.New("boom"), "second")
	c.NoError(nil, "third")
	if !c.Failed() {
		t.Error("Failed() = false")
	}
}

func TestAsAssertionRejectsOtherPanics(t *testing.T) {
	for _, v := range []any{"text", errors.New("plain"), 42, nil} {
		if _, ok := AsAssertion(v); ok {
			t.Errorf("AsAssertion(%v) = true", v)
		}
	}
}

func TestLogFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, _ := newContext(t, fs, Options{Dir: "out"})
	c.Logf("tile %d has %d entries", 0, 1)
	c.SetAbortOnFailure(false)
	c.Assert(false, "mask mismatch")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	log := string(readFile(t, fs, "out/probe/probe.log"))
	for _, want := range []string{"tile 0 has 1 entries", "TEST ASSERT FAILED: mask mismatch", "test=probe"} {
		if !strings.Contains(log, want) {
			t.Errorf("log file missing %q:\n%s", want, log)
		}
	}
}

func TestReadOnlyFilesystem(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	c, _ := newContext(t, fs, Options{Dir: "out"})
	c.Logf("still logs")
	c.Snapshot("pre")
	if ok, _ := afero.Exists(fs, "out/probe"); ok {
		t.Error("read-only filesystem has a test directory")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, dev := newContext(t, fs, Options{Dir: "out"})

	dev.WriteReg(pvr.TA_OL_BASE, 0x0010_0000)
	dev.WriteReg(pvr.OLPointer(3), 0x8000_0040)
	if err := dev.WriteWord(0x0010_0000, 0xF000_0000); err != nil {
		t.Fatal(err)
	}
	c.Snapshot("post")

	vramPath, regsPath := c.SnapshotPaths("post")
	if vramPath != "out/probe/vram_probe_post.bin" || regsPath != "out/probe/pvr_regs_probe_post.bin" {
		t.Errorf("SnapshotPaths() = %s, %s", vramPath, regsPath)
	}
	if got := len(readFile(t, fs, vramPath)); got != pvr.VRAMSize {
		t.Errorf("VRAM snapshot is %d bytes, want %d", got, pvr.VRAMSize)
	}
	regs := readFile(t, fs, regsPath)
	if got, want := len(regs), 8*len(pvr.DumpRegs()); got != want {
		t.Errorf("register snapshot is %d bytes, want %d", got, want)
	}
	if !bytes.Equal(regs[:4], []byte{0x00, 0x80, 0x5F, 0xA0}) {
		t.Errorf("first record address = % x, want ID at 0xA05F8000", regs[:4])
	}

	d, err := LoadDump(fs, "out", "probe", "post")
	if err != nil {
		t.Fatalf("LoadDump() error = %v", err)
	}
	if w, _ := d.ReadWord(0x0010_0000); w != 0xF000_0000 {
		t.Errorf("ReadWord() = 0x%08x", w)
	}
	tests := []struct {
		reg  pvr.Reg
		want uint32
	}{
		{pvr.ID, sim.ChipID},
		{pvr.TA_OL_BASE, 0x0010_0000},
		{pvr.OLPointer(3), 0x8000_0040},
	}
	for _, tt := range tests {
		got, err := d.ReadReg(tt.reg)
		if err != nil || got != tt.want {
			t.Errorf("ReadReg(%v) = 0x%08x, %v; want 0x%08x", tt.reg, got, err, tt.want)
		}
	}
	if _, err := d.ReadReg(pvr.ISTNRM); !errors.Is(err, ErrNoRegister) {
		t.Errorf("ReadReg(ISTNRM) error = %v, want ErrNoRegister", err)
	}
	if got := len(d.Regs()); got != len(pvr.DumpRegs()) {
		t.Errorf("Regs() has %d entries, want %d", got, len(pvr.DumpRegs()))
	}
}

func TestLoadDumpMissing(t *testing.T) {
	if _, err := LoadDump(afero.NewMemMapFs(), "out", "probe", "none"); err == nil {
		t.Error("LoadDump() of a missing snapshot succeeded")
	}
}

func TestReadTruncated(t *testing.T) {
	if _, err := ReadVRAM(bytes.NewReader(make([]byte, 100))); !errors.Is(err, ErrShortDump) {
		t.Errorf("ReadVRAM() error = %v, want ErrShortDump", err)
	}
	if _, err := ReadRegs(bytes.NewReader(make([]byte, 12))); !errors.Is(err, ErrShortDump) {
		t.Errorf("ReadRegs() error = %v, want ErrShortDump", err)
	}
}

func TestArchiveCaches(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, _ := newContext(t, fs, Options{Dir: "out"})
	c.Snapshot("a")

	a, err := NewArchive(fs, "out", 0)
	if err != nil {
		t.Fatal(err)
	}
	d1, err := a.Load("probe", "a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	d2, _ := a.Load("probe", "a")
	if d1 != d2 {
		t.Error("second Load() did not hit the cache")
	}
	if a.Loaded() != 1 {
		t.Errorf("Loaded() = %d, want 1", a.Loaded())
	}
	a.Evict("probe", "a")
	if a.Loaded() != 0 {
		t.Errorf("Loaded() after Evict = %d, want 0", a.Loaded())
	}
}

func TestDiff(t *testing.T) {
	ma, mb := pvr.NewMemory(), pvr.NewMemory()
	for _, addr := range []uint32{0x100, 0x104, 0x108, 0x200} {
		_ = mb.WriteWord(addr, 1)
	}
	a := NewDump(ma, map[pvr.Reg]uint32{pvr.ID: 1, pvr.TA_OL_BASE: 0x100})
	b := NewDump(mb, map[pvr.Reg]uint32{pvr.ID: 1, pvr.TA_OL_BASE: 0x200, pvr.PARAM_BASE: 0})

	d := Diff(a, b)
	if len(d.Regs) != 2 {
		t.Fatalf("Regs = %+v, want 2 changes", d.Regs)
	}
	if d.Regs[0].Reg != pvr.PARAM_BASE || d.Regs[0].InOld {
		t.Errorf("Regs[0] = %+v, want PARAM_BASE added", d.Regs[0])
	}
	want := []Span{{0x100, 3}, {0x200, 1}}
	if len(d.VRAM) != len(want) || d.VRAM[0] != want[0] || d.VRAM[1] != want[1] {
		t.Errorf("VRAM = %+v, want %+v", d.VRAM, want)
	}

	var buf bytes.Buffer
	d.Format(&buf)
	if !strings.Contains(buf.String(), "VRAM 0x000100..0x00010c  3 words") {
		t.Errorf("Format() =\n%s", buf.String())
	}
	if !Diff(a, a).Empty() {
		t.Error("Diff(a, a) not empty")
	}
}

func TestParseImageFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ImageFormat
		wantErr bool
	}{
		{"ppm", PPM, false},
		{".PNG", PNG, false},
		{"bmp", BMP, false},
		{"tif", TIFF, false},
		{"tiff", TIFF, false},
		{"gif", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseImageFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWritePPM(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 0xFF})
	img.Set(1, 0, color.RGBA{R: 4, G: 5, B: 6, A: 0xFF})
	var buf bytes.Buffer
	if err := WritePPM(&buf, img); err != nil {
		t.Fatal(err)
	}
	want := "P6\n2 1\n255\n\x01\x02\x03\x04\x05\x06"
	if buf.String() != want {
		t.Errorf("WritePPM() = %q, want %q", buf.String(), want)
	}
}

// stripes fills a 16×4 RGB565 framebuffer at addr with red on the left
// half and blue on the right.
func stripes(t *testing.T, bus pvr.Bus) render.Framebuffer {
	t.Helper()
	fb := render.Framebuffer{Addr: 0x40_0000, Width: 16, Height: 4, Format: render.RGB565}
	line := make([]byte, 32)
	for x := range 16 {
		v := uint16(0xF800)
		if x >= 8 {
			v = 0x001F
		}
		line[2*x], line[2*x+1] = byte(v), byte(v>>8)
	}
	for y := range 4 {
		if err := bus.WriteVRAM(fb.Addr+uint32(y*32), line); err != nil {
			t.Fatal(err)
		}
	}
	return fb
}

func TestExportImage(t *testing.T) {
	decoders := map[ImageFormat]func(io.Reader) (image.Image, error){
		PNG:  png.Decode,
		BMP:  bmp.Decode,
		TIFF: tiff.Decode,
	}
	for f, decode := range decoders {
		t.Run(f.String(), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			c, dev := newContext(t, fs, Options{Dir: "out", Scale: 2})
			fb := stripes(t, dev)

			name, err := c.ExportImageAs("post", fb, f)
			if err != nil {
				t.Fatalf("ExportImageAs() error = %v", err)
			}
			if want := "out/probe/fb_probe_post." + f.String(); name != want {
				t.Errorf("path = %s, want %s", name, want)
			}
			img, err := decode(bytes.NewReader(readFile(t, fs, name)))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 8 {
				t.Errorf("bounds = %v, want 32x8", b)
			}
			r, _, _, _ := img.At(15, 7).RGBA()
			_, _, bl, _ := img.At(16, 0).RGBA()
			if r>>8 != 0xF8 || bl>>8 != 0xF8 {
				t.Errorf("pixels r=%02x b=%02x, want f8 f8", r>>8, bl>>8)
			}
		})
	}
}

func TestExportImageDefaultPPM(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, dev := newContext(t, fs, Options{Dir: "out"})
	fb := stripes(t, dev)
	name, err := c.ExportImage("post", fb)
	if err != nil {
		t.Fatalf("ExportImage() error = %v", err)
	}
	data := readFile(t, fs, name)
	if !bytes.HasPrefix(data, []byte("P6\n16 4\n255\n")) {
		t.Fatalf("header = %q", data[:12])
	}
	if got := data[12:15]; !bytes.Equal(got, []byte{0xF8, 0, 0}) {
		t.Errorf("first pixel = % x, want f8 00 00", got)
	}

	fb.Format = render.PixelFormat(99)
	if _, err := c.ExportImage("bad", fb); !errors.Is(err, render.ErrUnsupportedFormat) {
		t.Errorf("ExportImage(bad format) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := c.ExportImageAs("bad", stripes(t, dev), ImageFormat(9)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ExportImageAs(bad file format) error = %v", err)
	}
}

func TestTileCountsAndOverlay(t *testing.T) {
	dev := sim.New(sim.Config{})
	defer dev.Close()
	cfg := ta.ListConfig{
		ISPLimit: 0x10_0000, OLBase: 0x10_0000, OLLimit: 0x20_0000, NextOPBInit: 0x18_0000,
		TilesX: 2, TilesY: 1, OPB: [ta.ListCount]int{8},
	}
	if err := cfg.Init(dev); err != nil {
		t.Fatal(err)
	}
	enc := ta.NewEncoder(dev)
	enc.EmitPolygonHeader(ta.DefaultPolygonHeader())
	for range 3 {
		enc.EmitStrip([]ta.Vertex{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 9, Z: 1}, {X: 9, Y: 9, Z: 1}})
	}
	enc.EmitEndOfList()
	if err := render.RegionArrayFor(0x20_0000, cfg).Encode(dev); err != nil {
		t.Fatal(err)
	}

	counts, err := TileCounts(dev, 0x20_0000)
	if err != nil {
		t.Fatalf("TileCounts() error = %v", err)
	}
	want := []TileCount{{0, 0, 3}, {1, 0, 0}}
	if len(counts) != 2 || counts[0] != want[0] || counts[1] != want[1] {
		t.Fatalf("TileCounts() = %+v, want %+v", counts, want)
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	out := Overlay(img, counts, 2)
	if b := out.Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Fatalf("Overlay bounds = %v", b)
	}
	if got := out.RGBAAt(64, 10); got != (color.RGBA{0xFF, 0xFF, 0x00, 0xFF}) {
		t.Errorf("grid pixel = %v", got)
	}
	var lit int
	for y := 1; y < 16; y++ {
		for x := 1; x < 12; x++ {
			if out.RGBAAt(x, y) == (color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("tile 0 label not drawn")
	}
	for y := 1; y < 16; y++ {
		for x := 65; x < 76; x++ {
			if out.RGBAAt(x, y) == (color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
				t.Fatalf("empty tile labelled at (%d,%d)", x, y)
			}
		}
	}
}
