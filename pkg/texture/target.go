package texture

import (
	"fmt"
	"strings"
)

// Target is a block-compression output format.
type Target uint8

const (
	BC1 Target = iota + 1 // DXT1 - RGB + 1-bit alpha, 8 bytes/block
	BC3                   // DXT5 - RGBA, 16 bytes/block
	BC7                   // high quality RGBA, 16 bytes/block
)

// DXGI_FORMAT codes for the supported targets.
const (
	DXGIFormatBC1Unorm = 71
	DXGIFormatBC3Unorm = 77
	DXGIFormatBC7Unorm = 98
)

// Valid reports whether t is one of the supported targets.
func (t Target) Valid() bool {
	return t == BC1 || t == BC3 || t == BC7
}

// DXGIFormat returns the DXGI_FORMAT code written to the DX10 header.
func (t Target) DXGIFormat() uint32 {
	switch t {
	case BC1:
		return DXGIFormatBC1Unorm
	case BC3:
		return DXGIFormatBC3Unorm
	case BC7:
		return DXGIFormatBC7Unorm
	default:
		return 0
	}
}

// BlockSize returns the number of bytes per 4x4 block.
func (t Target) BlockSize() int {
	if t == BC1 {
		return 8
	}
	return 16
}

func (t Target) String() string {
	switch t {
	case BC1:
		return "BC1"
	case BC3:
		return "BC3"
	case BC7:
		return "BC7"
	default:
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
}

// ParseTarget accepts "bc1", "bc3", "bc7" and the DXT aliases.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bc1", "dxt1":
		return BC1, nil
	case "bc3", "dxt5":
		return BC3, nil
	case "bc7":
		return BC7, nil
	default:
		return 0, fmt.Errorf("unknown compression target %q", s)
	}
}

// TargetFromDXGI maps a DXGI_FORMAT code back to a Target.
func TargetFromDXGI(format uint32) (Target, bool) {
	switch format {
	case DXGIFormatBC1Unorm:
		return BC1, true
	case DXGIFormatBC3Unorm:
		return BC3, true
	case DXGIFormatBC7Unorm:
		return BC7, true
	default:
		return 0, false
	}
}
