package lane

// packBlock is the number of 32-bit lanes in one 128-bit register block.
// Hardware saturating packs work per 128-bit block, so a two-source pack of
// wide registers interleaves the sources block by block.
const packBlock = 4

// Saturate narrows a 32-bit counter to 16 bits, clamping to [0, 65535].
func Saturate(c int32) uint16 {
	switch {
	case c < 0:
		return 0
	case c > 0xFFFF:
		return 0xFFFF
	default:
		return uint16(c)
	}
}

// Narrow writes the saturated counters of c to dst in lane order.
// dst must hold at least len(c) elements.
func Narrow[M Ints](c M, dst []uint16) {
	_ = dst[len(c)-1]
	for i := 0; i < len(c); i++ {
		dst[i] = Saturate(c[i])
	}
}

// NarrowPair packs two counter groups through one interleaved buffer and
// writes them to dstA and dstB in left-to-right order.
//
// The intermediate buffer holds the layout of a two-source saturating pack:
//
//	[a0 a1 a2 a3 b0 b1 b2 b3 a4 a5 a6 a7 b4 b5 b6 b7 ...]
//
// Restoring raster order is a pure permutation and has no numeric effect.
func NarrowPair[M Ints](a, b M, dstA, dstB []uint16) {
	var buf [2 * MaxWidth]uint16
	n := interleave(a, b, &buf)
	deinterleave(buf[:n], len(a), dstA, dstB)
}

// interleave saturates a and b into buf in packed register order and returns
// the number of values written.
func interleave[M Ints](a, b M, buf *[2 * MaxWidth]uint16) int {
	w := len(a)
	blk := blockFor(w)
	p := 0
	for base := 0; base < w; base += blk {
		for j := 0; j < blk; j++ {
			buf[p] = Saturate(a[base+j])
			p++
		}
		for j := 0; j < blk; j++ {
			buf[p] = Saturate(b[base+j])
			p++
		}
	}
	return p
}

// deinterleave undoes interleave for groups of width w.
func deinterleave(buf []uint16, w int, dstA, dstB []uint16) {
	_ = dstA[w-1]
	_ = dstB[w-1]
	blk := blockFor(w)
	for p, v := range buf {
		lane := (p/(2*blk))*blk + p%blk
		if (p/blk)%2 == 0 {
			dstA[lane] = v
		} else {
			dstB[lane] = v
		}
	}
}

func blockFor(w int) int {
	if w < packBlock {
		return w
	}
	return packBlock
}
