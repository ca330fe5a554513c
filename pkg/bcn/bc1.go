package bcn

import "encoding/binary"

func pack565(c [4]float32) uint16 {
	r := uint16((c[0]*31 + 127.5) / 255)
	g := uint16((c[1]*63 + 127.5) / 255)
	b := uint16((c[2]*31 + 127.5) / 255)
	return r<<11 | g<<5 | b
}

func (t *lookupTables) unpack565(c uint16) [4]int32 {
	return [4]int32{
		int32(t.expand5[c>>11&0x1f]),
		int32(t.expand6[c>>5&0x3f]),
		int32(t.expand5[c&0x1f]),
		255,
	}
}

// colorPalette expands two 565 endpoints the way decoders do. In three-color
// mode entry 3 is transparent black.
func (t *lookupTables) colorPalette(c0, c1 uint16, fourColor bool) [4][4]int32 {
	var p [4][4]int32
	p[0] = t.unpack565(c0)
	p[1] = t.unpack565(c1)
	for c := 0; c < 3; c++ {
		if fourColor {
			p[2][c] = (2*p[0][c] + p[1][c]) / 3
			p[3][c] = (p[0][c] + 2*p[1][c]) / 3
		} else {
			p[2][c] = (p[0][c] + p[1][c]) / 2
		}
	}
	p[2][3] = 255
	if fourColor {
		p[3][3] = 255
	}
	return p
}

// encodeColor writes the 8-byte color part of a BC1/BC3 block. Texels for
// which transparent reports true get index 3 in three-color mode; with
// forceFour the block always uses four-color mode.
func encodeColor(dst []byte, b *Block, transparent func(i int) bool, forceFour bool) {
	t := lut()

	pts := make([][4]float32, 0, 16)
	anyTransparent := false
	for i := range b {
		if !forceFour && transparent(i) {
			anyTransparent = true
			continue
		}
		p := b[i]
		pts = append(pts, [4]float32{float32(p[0]), float32(p[1]), float32(p[2])})
	}

	if len(pts) == 0 {
		// Fully transparent: three-color mode, every index 3.
		binary.LittleEndian.PutUint16(dst[0:], 0)
		binary.LittleEndian.PutUint16(dst[2:], 0)
		binary.LittleEndian.PutUint32(dst[4:], 0xffffffff)
		return
	}

	mean, axis := principalAxis(pts, 3)
	lo, hi := extent(pts, mean, axis, 3)
	c0, c1 := pack565(hi), pack565(lo)

	fourColor := !anyTransparent
	if fourColor && c0 < c1 || !fourColor && c0 > c1 {
		c0, c1 = c1, c0
	}
	// Equal endpoints decode as three-color mode; index 0 still reproduces
	// the color, so only opaque entries 0..2 are ever chosen.
	palette := t.colorPalette(c0, c1, fourColor && c0 != c1)
	choices := 4
	if !fourColor || c0 == c1 {
		choices = 3
	}

	var indices uint32
	for i := range b {
		var idx uint32
		if anyTransparent && transparent(i) {
			idx = 3
		} else {
			px := texel(b[i])
			bestDist := int32(1 << 30)
			for j := 0; j < choices; j++ {
				if d := sqDist(px, palette[j], 3); d < bestDist {
					bestDist, idx = d, uint32(j)
				}
			}
		}
		indices |= idx << (2 * i)
	}

	binary.LittleEndian.PutUint16(dst[0:], c0)
	binary.LittleEndian.PutUint16(dst[2:], c1)
	binary.LittleEndian.PutUint32(dst[4:], indices)
}

// EncodeBC1 writes an 8-byte BC1 block. Texels with alpha below
// alphaThreshold are encoded transparent; a threshold of 0 makes every texel
// opaque.
func EncodeBC1(dst []byte, b *Block, alphaThreshold uint8) {
	encodeColor(dst, b, func(i int) bool { return b[i][3] < alphaThreshold }, false)
}

// DecodeBC1 expands an 8-byte BC1 block.
func DecodeBC1(src []byte, out *Block) {
	t := lut()
	c0 := binary.LittleEndian.Uint16(src[0:])
	c1 := binary.LittleEndian.Uint16(src[2:])
	indices := binary.LittleEndian.Uint32(src[4:])

	palette := t.colorPalette(c0, c1, c0 > c1)
	for i := 0; i < 16; i++ {
		p := palette[indices>>(2*i)&3]
		out[i] = [4]uint8{uint8(p[0]), uint8(p[1]), uint8(p[2]), uint8(p[3])}
	}
}
