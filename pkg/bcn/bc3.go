package bcn

import "encoding/binary"

func alphaPalette(a0, a1 uint8) [8]int32 {
	var p [8]int32
	p[0], p[1] = int32(a0), int32(a1)
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			p[i] = (p[0]*int32(8-i) + p[1]*int32(i-1)) / 7
		}
	} else {
		for i := 2; i < 6; i++ {
			p[i] = (p[0]*int32(6-i) + p[1]*int32(i-1)) / 5
		}
		p[6], p[7] = 0, 255
	}
	return p
}

func encodeAlpha(dst []byte, b *Block) {
	a0, a1 := uint8(0), uint8(255)
	for i := range b {
		a0 = max(a0, b[i][3])
		a1 = min(a1, b[i][3])
	}

	dst[0], dst[1] = a0, a1
	var bits uint64
	if a0 != a1 {
		palette := alphaPalette(a0, a1)
		for i := range b {
			a := int32(b[i][3])
			idx, bestDist := 0, int32(1<<30)
			for j, v := range palette {
				d := (a - v) * (a - v)
				if d < bestDist {
					idx, bestDist = j, d
				}
			}
			bits |= uint64(idx) << (3 * i)
		}
	}
	for i := 0; i < 6; i++ {
		dst[2+i] = byte(bits >> (8 * i))
	}
}

// EncodeBC3 writes a 16-byte BC3 block: interpolated alpha followed by a
// four-color BC1 color block.
func EncodeBC3(dst []byte, b *Block) {
	encodeAlpha(dst[:8], b)
	encodeColor(dst[8:16], b, nil, true)
}

// DecodeBC3 expands a 16-byte BC3 block.
func DecodeBC3(src []byte, out *Block) {
	t := lut()
	alphas := alphaPalette(src[0], src[1])
	var abits uint64
	for i := 0; i < 6; i++ {
		abits |= uint64(src[2+i]) << (8 * i)
	}

	c0 := binary.LittleEndian.Uint16(src[8:])
	c1 := binary.LittleEndian.Uint16(src[10:])
	indices := binary.LittleEndian.Uint32(src[12:])
	palette := t.colorPalette(c0, c1, true)

	for i := 0; i < 16; i++ {
		p := palette[indices>>(2*i)&3]
		a := alphas[abits>>(3*i)&7]
		out[i] = [4]uint8{uint8(p[0]), uint8(p[1]), uint8(p[2]), uint8(a)}
	}
}
