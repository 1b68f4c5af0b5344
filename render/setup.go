package render

import (
	"context"
	"log/slog"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// Setup is everything the ISP needs for one render pass.
type Setup struct {
	ParamBase   uint32
	Background  Background
	Regions     RegionArray
	Framebuffer Framebuffer
}

// Apply programs PARAM_BASE and REGION_BASE, then encodes the background
// plane, the Region Array and the framebuffer registers. Applying the same
// Setup twice writes identical bytes.
func (s Setup) Apply(bus pvr.Bus) error {
	if err := s.Framebuffer.Validate(); err != nil {
		return err
	}
	bus.WriteReg(pvr.PARAM_BASE, s.ParamBase)
	bus.WriteReg(pvr.REGION_BASE, s.Regions.Base)

	if err := s.Background.Encode(bus, s.ParamBase); err != nil {
		return err
	}
	if err := s.Regions.Encode(bus); err != nil {
		return err
	}
	if err := s.Framebuffer.Program(bus); err != nil {
		return err
	}

	if l := dcpvr.Logger(); l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug("render: setup applied",
			"param_base", s.ParamBase,
			"region_base", s.Regions.Base,
			"tiles", s.Regions.TilesX*s.Regions.TilesY,
			"fb", s.Framebuffer.Format.String())
	}
	return nil
}

// StartRender kicks off the ISP/TSP pass over the current Region Array.
func StartRender(bus pvr.Bus) {
	bus.WriteReg(pvr.STARTRENDER, pvr.StartRender)
}
