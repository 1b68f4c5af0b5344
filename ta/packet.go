// Package ta encodes tile accelerator command packets and pushes them to the
// polygon FIFO.
//
// Every packet is exactly eight 32-bit words. The parameter type lives in
// the top three bits of word 0:
//
//	0: end of list      (all-zero packet)
//	1: user tile clip   (words 4-7: tile-space bounds)
//	4: polygon header   (words 1-3: ISP/TSP, TSP, texture control)
//	7: vertex           (words 1-3: x, y, z; word 6: packed ARGB)
//
// The FIFO silently drops partial or misordered writes, so packets only ever
// leave this package as whole 32-byte bursts.
package ta

import (
	"fmt"
	"math"
)

// ParaType is the 3-bit parameter type of a command packet.
type ParaType uint32

// Parameter types.
const (
	ParaEndOfList     ParaType = 0
	ParaUserTileClip  ParaType = 1
	ParaObjectListSet ParaType = 2
	ParaPolygon       ParaType = 4
	ParaSprite        ParaType = 5
	ParaVertex        ParaType = 7
)

// String returns the parameter type name.
func (p ParaType) String() string {
	switch p {
	case ParaEndOfList:
		return "EndOfList"
	case ParaUserTileClip:
		return "UserTileClip"
	case ParaObjectListSet:
		return "ObjectListSet"
	case ParaPolygon:
		return "Polygon"
	case ParaSprite:
		return "Sprite"
	case ParaVertex:
		return "Vertex"
	default:
		return fmt.Sprintf("ParaType(%d)", uint32(p))
	}
}

// Parameter control word fields (word 0).
const (
	paraTypeShift  = 29
	endOfStripBit  = 1 << 28
	listTypeShift  = 24
	groupEnableBit = 1 << 23
	stripLenShift  = 18
	userClipShift  = 16
	colTypeShift   = 4
	textureBit     = 1 << 3
	offsetBit      = 1 << 2
	gouraudBit     = 1 << 1
	uv16Bit        = 1 << 0
)

// userClipWord0 is the fixed control word of a user tile clip packet.
const userClipWord0 = uint32(ParaUserTileClip) << paraTypeShift

// ListType selects which primitive list a polygon header opens.
type ListType uint32

// Primitive list classes in Region Array order.
const (
	ListOpaque ListType = iota
	ListOpaqueModifier
	ListTranslucent
	ListTranslucentModifier
	ListPunchThrough
)

// ListCount is the number of primitive list classes.
const ListCount = 5

// String returns the list name as used in dump output.
func (l ListType) String() string {
	switch l {
	case ListOpaque:
		return "Opaque"
	case ListOpaqueModifier:
		return "Opaque Mod Vol"
	case ListTranslucent:
		return "Trans"
	case ListTranslucentModifier:
		return "Trans Mod Vol"
	case ListPunchThrough:
		return "Punchthrough"
	default:
		return fmt.Sprintf("ListType(%d)", uint32(l))
	}
}

// UserClipMode selects how the user tile clip applies to a polygon.
type UserClipMode uint32

// User clip modes.
const (
	UserClipDisabled UserClipMode = 0
	UserClipInside   UserClipMode = 2
	UserClipOutside  UserClipMode = 3
)

// ColType is the vertex color encoding declared by a polygon header.
type ColType uint32

// Color types. Only ColPacked carries a color in vertex word 6.
const (
	ColPacked ColType = iota
	ColFloat
	ColIntensity1
	ColIntensity2
)

// DepthCompare is the ISP depth comparison mode (ISP/TSP word bits 31-29).
type DepthCompare uint32

// Depth compare modes. PowerVR depth is 1/w: larger values are closer.
const (
	DepthNever DepthCompare = iota
	DepthLess
	DepthEqual
	DepthLessEqual
	DepthGreater
	DepthNotEqual
	DepthGreaterEqual
	DepthAlways
)

// CullMode is the ISP culling mode (ISP/TSP word bits 28-27).
type CullMode uint32

// Culling modes.
const (
	CullNone CullMode = iota
	CullSmall
	CullCCW
	CullCW
)

// ISP/TSP instruction word fields.
const (
	ispDepthShift    = 29
	ispCullShift     = 27
	ispZWriteDisable = 1 << 26
	ispTexture       = 1 << 25
	ispOffset        = 1 << 24
	ispGouraud       = 1 << 23
	ispUV16          = 1 << 22

	// ISPShadingMask covers the bits the TA copies from the parameter
	// control word into the stored ISP/TSP word.
	ISPShadingMask uint32 = ispTexture | ispOffset | ispGouraud | ispUV16
)

// ISPWord builds an ISP/TSP instruction word.
func ISPWord(depth DepthCompare, cull CullMode, zwrite bool) uint32 {
	w := uint32(depth)<<ispDepthShift | uint32(cull)<<ispCullShift
	if !zwrite {
		w |= ispZWriteDisable
	}
	return w
}

// ISPDepth extracts the depth compare mode from an ISP/TSP word.
func ISPDepth(isp uint32) DepthCompare {
	return DepthCompare(isp >> ispDepthShift)
}

// ISPCull extracts the culling mode from an ISP/TSP word.
func ISPCull(isp uint32) CullMode {
	return CullMode(isp>>ispCullShift) & 3
}

// ISPZWrite reports whether depth writes are enabled.
func ISPZWrite(isp uint32) bool {
	return isp&ispZWriteDisable == 0
}

// ISPGouraud reports whether Gouraud shading is enabled.
func ISPGouraud(isp uint32) bool {
	return isp&ispGouraud != 0
}

// ISPTextured reports whether the polygon is textured.
func ISPTextured(isp uint32) bool {
	return isp&ispTexture != 0
}

// ISPOffset reports whether vertices carry an offset color.
func ISPOffset(isp uint32) bool {
	return isp&ispOffset != 0
}

// Packet is one 32-byte FIFO command.
type Packet [8]uint32

// ParaType returns the parameter type of the packet.
func (p *Packet) ParaType() ParaType {
	return ParaType(p[0] >> paraTypeShift)
}

// EndOfStrip reports whether a vertex packet closes its strip.
func (p *Packet) EndOfStrip() bool {
	return p[0]&endOfStripBit != 0
}

// EndOfList returns the all-zero sentinel packet.
func EndOfList() Packet {
	return Packet{}
}

// UserClip returns a user tile clip packet covering the inclusive tile
// rectangle (txMin, tyMin)-(txMax, tyMax).
func UserClip(txMin, tyMin, txMax, tyMax uint32) Packet {
	return Packet{userClipWord0, 0, 0, 0, txMin, tyMin, txMax, tyMax}
}

// ClipBounds returns the tile rectangle of a user clip packet.
func (p *Packet) ClipBounds() (txMin, tyMin, txMax, tyMax uint32) {
	return p[4], p[5], p[6], p[7]
}

// PolygonHeader is the global parameter set that opens a primitive list.
type PolygonHeader struct {
	ListType    ListType
	GroupEnable bool
	StripLen    uint32 // 0-3: 1, 2, 4 or 6 triangles
	UserClip    UserClipMode
	ColType     ColType
	Texture     bool
	Offset      bool
	Gouraud     bool
	UV16        bool

	ISP     uint32 // ISP/TSP instruction word
	TSP     uint32 // TSP instruction word
	TexCtrl uint32 // texture control word
}

// DefaultPolygonHeader returns the header the binning probes use: opaque
// list, group enable set, strip length 0, no user clip, zero control words.
func DefaultPolygonHeader() PolygonHeader {
	return PolygonHeader{
		ListType:    ListOpaque,
		GroupEnable: true,
	}
}

// ControlWord returns word 0 of the header packet.
func (h PolygonHeader) ControlWord() uint32 {
	w := uint32(ParaPolygon)<<paraTypeShift |
		uint32(h.ListType&7)<<listTypeShift |
		(h.StripLen&3)<<stripLenShift |
		uint32(h.UserClip&3)<<userClipShift |
		uint32(h.ColType&3)<<colTypeShift
	if h.GroupEnable {
		w |= groupEnableBit
	}
	if h.Texture {
		w |= textureBit
	}
	if h.Offset {
		w |= offsetBit
	}
	if h.Gouraud {
		w |= gouraudBit
	}
	if h.UV16 {
		w |= uv16Bit
	}
	return w
}

// Packet encodes the header.
func (h PolygonHeader) Packet() Packet {
	return Packet{h.ControlWord(), h.ISP, h.TSP, h.TexCtrl}
}

// DecodePolygonHeader recovers a header from a polygon packet.
func DecodePolygonHeader(p *Packet) PolygonHeader {
	w := p[0]
	return PolygonHeader{
		ListType:    ListType(w>>listTypeShift) & 7,
		GroupEnable: w&groupEnableBit != 0,
		StripLen:    (w >> stripLenShift) & 3,
		UserClip:    UserClipMode(w>>userClipShift) & 3,
		ColType:     ColType(w>>colTypeShift) & 3,
		Texture:     w&textureBit != 0,
		Offset:      w&offsetBit != 0,
		Gouraud:     w&gouraudBit != 0,
		UV16:        w&uv16Bit != 0,
		ISP:         p[1],
		TSP:         p[2],
		TexCtrl:     p[3],
	}
}

// StoredISP returns the ISP/TSP word as the TA writes it to parameter
// memory: the shading bits come from the parameter control word.
func (h PolygonHeader) StoredISP() uint32 {
	w := h.ISP &^ ISPShadingMask
	if h.Texture {
		w |= ispTexture
	}
	if h.Offset {
		w |= ispOffset
	}
	if h.Gouraud {
		w |= ispGouraud
	}
	if h.UV16 {
		w |= ispUV16
	}
	return w
}

// Vertex is a packed-color vertex parameter.
type Vertex struct {
	X, Y, Z    float32
	Color      uint32 // packed ARGB8888
	EndOfStrip bool
}

// Packet encodes the vertex.
func (v Vertex) Packet() Packet {
	p := Packet{uint32(ParaVertex) << paraTypeShift}
	if v.EndOfStrip {
		p[0] |= endOfStripBit
	}
	p[1] = math.Float32bits(v.X)
	p[2] = math.Float32bits(v.Y)
	p[3] = math.Float32bits(v.Z)
	p[6] = v.Color
	return p
}

// DecodeVertex recovers a vertex from a vertex packet.
func DecodeVertex(p *Packet) Vertex {
	return Vertex{
		X:          math.Float32frombits(p[1]),
		Y:          math.Float32frombits(p[2]),
		Z:          math.Float32frombits(p[3]),
		Color:      p[6],
		EndOfStrip: p.EndOfStrip(),
	}
}
