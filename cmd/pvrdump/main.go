// Command pvrdump interprets the snapshots written by pvrtests.
//
// A snapshot is named by the probe and the tag it was taken under:
//
//	pvrdump -test ta_basic_single_poly -tag post -regs -ol 0x100000
//	pvrdump -test isp_simple_render -tag post -fb fb.png -overlay grid.png
//	pvrdump -test ta_basic_single_poly -tag ta_init -diff post
package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path"
	"strconv"

	"github.com/spf13/afero"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/render"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

func main() {
	var (
		dir     = flag.String("dir", "out", "artifact directory")
		test    = flag.String("test", "", "probe name")
		tag     = flag.String("tag", "post", "snapshot tag")
		regs    = flag.Bool("regs", false, "print every captured register")
		olAddr  = flag.String("ol", "", "print the Object List at this VRAM address")
		region  = flag.String("region", "", "Region Array address (default REGION_BASE)")
		fbOut   = flag.String("fb", "", "export the framebuffer to this file")
		overlay = flag.String("overlay", "", "export the framebuffer with per-tile entry counts")
		scale   = flag.Int("scale", 4, "scale factor for -overlay")
		diffTag = flag.String("diff", "", "compare against another tag of the same probe")
	)
	flag.Parse()
	if *test == "" {
		flag.Usage()
		os.Exit(2)
	}

	fs := afero.NewOsFs()
	archive, err := capture.NewArchive(fs, *dir, 0)
	if err != nil {
		log.Fatal(err)
	}
	d, err := archive.Load(*test, *tag)
	if err != nil {
		log.Fatal(err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	if *regs {
		for _, r := range d.Regs() {
			fmt.Fprintf(w, "%-18v 0x%08x\n", r, d.Reg(r))
		}
		fmt.Fprintln(w)
	}

	printOLPointers(w, d)

	if *olAddr != "" {
		addr := parseAddr("-ol", *olAddr)
		entries, err := scene.Entries(d, addr)
		if err != nil {
			log.Fatalf("object list 0x%06x: %v", addr, err)
		}
		fmt.Fprintf(w, "Object List @ 0x%06x\n", addr)
		for _, e := range entries {
			fmt.Fprintf(w, "  0x%06x  0x%08x  %v\n", e.Addr, e.Entry.Encode(), e.Entry)
		}
		fmt.Fprintln(w)
	}

	base := d.Reg(pvr.REGION_BASE)
	if *region != "" {
		base = parseAddr("-region", *region)
	}
	if base != 0 || *region != "" {
		if err := scene.Format(w, d, base); err != nil {
			log.Fatalf("region array: %v", err)
		}
		fmt.Fprintln(w)
	}

	if *fbOut != "" || *overlay != "" {
		fb, err := render.FramebufferFromRegs(d.Reg)
		if err != nil {
			log.Fatalf("framebuffer: %v", err)
		}
		img, err := fb.Decode(d)
		if err != nil {
			log.Fatalf("framebuffer: %v", err)
		}
		if *fbOut != "" {
			writeImage(fs, *fbOut, img)
		}
		if *overlay != "" {
			counts, err := capture.TileCounts(d, base)
			if err != nil {
				log.Fatalf("overlay: %v", err)
			}
			writeImage(fs, *overlay, capture.Overlay(img, counts, *scale))
		}
	}

	if *diffTag != "" {
		other, err := archive.Load(*test, *diffTag)
		if err != nil {
			log.Fatal(err)
		}
		delta := capture.Diff(d, other)
		fmt.Fprintf(w, "%s -> %s\n", *tag, *diffTag)
		if delta.Empty() {
			fmt.Fprintln(w, "no differences")
		} else {
			delta.Format(w)
		}
	}
}

// printOLPointers decodes TA_OL_POINTERS for every tile of the grid in
// TA_GLOB_TILE_CLIP. Grids larger than the pointer block are truncated.
func printOLPointers(w io.Writer, d *capture.Dump) {
	tx, ty := ta.DecodeGlobTileClip(d.Reg(pvr.TA_GLOB_TILE_CLIP))
	n := min(tx*ty, pvr.OLPointerCount)
	fmt.Fprintf(w, "TA_OL_POINTERS (%dx%d tiles, %d shown)\n", tx, ty, n)
	for i := range n {
		raw := d.Reg(pvr.OLPointer(i))
		fmt.Fprintf(w, "  %3d  0x%08x  %v\n", i, raw, scene.DecodeOLPointer(raw))
	}
	fmt.Fprintln(w)
}

// writeImage picks the encoder from the file extension.
func writeImage(fs afero.Fs, name string, img image.Image) {
	f, err := capture.ParseImageFormat(path.Ext(name))
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	if err := capture.WriteImage(fs, name, img, f); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%dx%d)", name, img.Bounds().Dx(), img.Bounds().Dy())
}

func parseAddr(flagName, s string) uint32 {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		log.Fatalf("%s: %v", flagName, err)
	}
	return uint32(v)
}
