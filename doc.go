// Package dcpvr probes the binning and rasterization behavior of the
// Dreamcast PowerVR2 (CLX2) tile accelerator.
//
// # Overview
//
// The module issues raw command streams to the GPU, waits for its
// completion interrupts, snapshots VRAM and the register file, and decodes
// the binned output (Object Lists and the Region Array) against the
// reverse-engineered binary format. Each probe is a small, deterministic test
// case; a single hardware run becomes a set of artifacts that can be
// re-analyzed offline.
//
// # Architecture
//
// The module is organized into:
//   - pvr: register offsets, memory windows, the Bus/Device abstraction
//   - ta: 32-byte command packets and the FIFO encoder
//   - scene: Object List and Region Array decoding
//   - render: background plane, Region Array and framebuffer setup
//   - event: completion interrupt bookkeeping with bounded waits
//   - capture: per-test log, snapshots, assertions and image export
//   - runner: explicit test registry and sequential runner
//   - probes: the probe test cases themselves
//   - internal/sim: a software model of the binner and ISP used by tests
//   - internal/script: probes written in Lua
//
// cmd/pvrtests runs probes and cmd/pvrdump interprets their snapshots.
//
// # Logging
//
// Nothing is logged by default. Call [SetLogger] to route every package's
// records to a slog handler.
//
// # Hardware
//
// The hardware Bus is only available when built with gccgo for KallistiOS.
// Every other build runs probes against internal/sim.
package dcpvr

// Version information
const (
	// Version is the current version of the probe suite
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
