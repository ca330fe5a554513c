package bcn

import "fmt"

// BC7 mode 6: one subset, 7-bit RGBA endpoints with a unique p-bit each and
// 4-bit indices.
const bc7Mode6 = 6

type bitWriter struct {
	buf []byte
	pos uint
}

func (w *bitWriter) write(v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		if v>>i&1 != 0 {
			w.buf[w.pos>>3] |= 1 << (w.pos & 7)
		}
		w.pos++
	}
}

type bitReader struct {
	buf []byte
	pos uint
}

func (r *bitReader) read(n uint) uint32 {
	var v uint32
	for i := uint(0); i < n; i++ {
		v |= uint32(r.buf[r.pos>>3]>>(r.pos&7)&1) << i
		r.pos++
	}
	return v
}

// quantize7 rounds c to 7-bit channels that expand with pbit.
func quantize7(c [4]float32, pbit uint32) [4]uint32 {
	var q [4]uint32
	for ch := 0; ch < 4; ch++ {
		v := (c[ch] - float32(pbit)) / 2
		q[ch] = uint32(min(max(v+0.5, 0), 127))
	}
	return q
}

func expand7(q [4]uint32, p uint32) [4]int32 {
	return [4]int32{int32(q[0]<<1 | p), int32(q[1]<<1 | p), int32(q[2]<<1 | p), int32(q[3]<<1 | p)}
}

func (t *lookupTables) mode6Palette(e0, e1 [4]int32) [16][4]int32 {
	var p [16][4]int32
	for i, w := range t.weight4 {
		for c := 0; c < 4; c++ {
			p[i][c] = ((64-w)*e0[c] + w*e1[c] + 32) >> 6
		}
	}
	return p
}

// EncodeBC7 writes a 16-byte BC7 block using mode 6.
func EncodeBC7(dst []byte, b *Block) {
	t := lut()

	pts := make([][4]float32, 16)
	for i := range b {
		for c := 0; c < 4; c++ {
			pts[i][c] = float32(b[i][c])
		}
	}
	mean, axis := principalAxis(pts, 4)
	lo, hi := extent(pts, mean, axis, 4)

	// Opaque blocks keep both p-bits set so alpha expands to exactly 255.
	pbits := [][2]uint32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	if opaque(b) {
		pbits = pbits[3:]
	}

	var (
		q0, q1  [4]uint32
		p0, p1  uint32
		idx     [16]uint32
		bestErr = int64(-1)
	)
	for _, pb := range pbits {
		c0, c1 := quantize7(lo, pb[0]), quantize7(hi, pb[1])
		palette := t.mode6Palette(expand7(c0, pb[0]), expand7(c1, pb[1]))

		var cand [16]uint32
		var e int64
		for i := range b {
			px := texel(b[i])
			bestDist := int32(1 << 30)
			for j := range palette {
				if d := sqDist(px, palette[j], 4); d < bestDist {
					bestDist, cand[i] = d, uint32(j)
				}
			}
			e += int64(bestDist)
		}
		if bestErr < 0 || e < bestErr {
			bestErr = e
			q0, q1, p0, p1, idx = c0, c1, pb[0], pb[1], cand
		}
	}

	// The anchor index is stored with its high bit implied zero.
	if idx[0]&8 != 0 {
		q0, q1 = q1, q0
		p0, p1 = p1, p0
		for i := range idx {
			idx[i] = 15 - idx[i]
		}
	}

	for i := range dst[:16] {
		dst[i] = 0
	}
	w := bitWriter{buf: dst}
	w.write(1<<bc7Mode6, bc7Mode6+1)
	for c := 0; c < 4; c++ {
		w.write(q0[c], 7)
		w.write(q1[c], 7)
	}
	w.write(p0, 1)
	w.write(p1, 1)
	w.write(idx[0], 3)
	for i := 1; i < 16; i++ {
		w.write(idx[i], 4)
	}
}

func opaque(b *Block) bool {
	for i := range b {
		if b[i][3] != 255 {
			return false
		}
	}
	return true
}

// DecodeBC7 expands a 16-byte BC7 block. Only mode 6 is supported.
func DecodeBC7(src []byte, out *Block) error {
	mode := 0
	for mode < 8 && src[0]>>mode&1 == 0 {
		mode++
	}
	if mode != bc7Mode6 {
		return fmt.Errorf("%w: BC7 mode %d", ErrUnsupportedMode, mode)
	}

	r := bitReader{buf: src, pos: bc7Mode6 + 1}
	var q0, q1 [4]uint32
	for c := 0; c < 4; c++ {
		q0[c] = r.read(7)
		q1[c] = r.read(7)
	}
	p0, p1 := r.read(1), r.read(1)

	palette := lut().mode6Palette(expand7(q0, p0), expand7(q1, p1))
	for i := 0; i < 16; i++ {
		n := uint(4)
		if i == 0 {
			n = 3
		}
		p := palette[r.read(n)]
		out[i] = [4]uint8{uint8(p[0]), uint8(p[1]), uint8(p[2]), uint8(p[3])}
	}
	return nil
}
