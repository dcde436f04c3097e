package convert

// Fixed-point conversion tables. Every coefficient carries 16 fractional
// bits; adding half (1<<15) before the final shift rounds half up, so results
// are identical on every platform.
const (
	fixBits = 16
	fixHalf = 1 << (fixBits - 1)
)

// BT.601 luma weights. They sum to exactly 1<<16 so gray round-trips.
const (
	lumaR = 19595
	lumaG = 38470
	lumaB = 7471
)

// Per-component lookup tables, computed once at package init.
var (
	lumaRLUT, lumaGLUT, lumaBLUT [256]int32

	// RGB -> YCbCr chroma contributions.
	cbR, cbG, cbB [256]int32
	crR, crG, crB [256]int32

	// YCbCr -> RGB contributions, indexed by the chroma byte.
	crToR, cbToB, cbToG, crToG [256]int32
)

func init() {
	for i := range 256 {
		v := int32(i)
		lumaRLUT[i] = v * lumaR
		lumaGLUT[i] = v * lumaG
		lumaBLUT[i] = v * lumaB

		// Cb = -0.168736 R - 0.331264 G + 0.5 B + 128
		cbR[i] = -v * 11059
		cbG[i] = -v * 21709
		cbB[i] = v * 32768
		// Cr = 0.5 R - 0.418688 G - 0.081312 B + 128
		crR[i] = v * 32768
		crG[i] = -v * 27439
		crB[i] = -v * 5329

		c := v - 128
		crToR[i] = c * 91881  // 1.402
		cbToB[i] = c * 116130 // 1.772
		cbToG[i] = c * 22554  // 0.344136
		crToG[i] = c * 46802  // 0.714136
	}
}

func clamp8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// luma returns the rounded BT.601 luma of an RGB triple.
func luma(r, g, b uint8) uint8 {
	return uint8((lumaRLUT[r] + lumaGLUT[g] + lumaBLUT[b] + fixHalf) >> fixBits)
}

func rgbToYCbCr(r, g, b uint8) (y, cb, cr uint8) {
	y = luma(r, g, b)
	cb = clamp8((cbR[r] + cbG[g] + cbB[b] + 128<<fixBits + fixHalf) >> fixBits)
	cr = clamp8((crR[r] + crG[g] + crB[b] + 128<<fixBits + fixHalf) >> fixBits)
	return y, cb, cr
}

func yCbCrToRGB(y, cb, cr uint8) (r, g, b uint8) {
	yy := int32(y) << fixBits
	r = clamp8((yy + crToR[cr] + fixHalf) >> fixBits)
	g = clamp8((yy - cbToG[cb] - crToG[cr] + fixHalf) >> fixBits)
	b = clamp8((yy + cbToB[cb] + fixHalf) >> fixBits)
	return r, g, b
}

// muldiv255 returns round(a*b/255) for a, b in 0..255.
func muldiv255(a, b int32) uint8 {
	return uint8((a*b + 127) / 255)
}

func cmykToRGB(c, m, y, k uint8) (r, g, b uint8) {
	nk := 255 - int32(k)
	return muldiv255(255-int32(c), nk), muldiv255(255-int32(m), nk), muldiv255(255-int32(y), nk)
}

// rgbToHSV maps hue, saturation and value onto 0..255. Hue 255 is just
// short of a full turn.
func rgbToHSV(r, g, b uint8) (h, s, v uint8) {
	ri, gi, bi := int32(r), int32(g), int32(b)
	hi := max(ri, gi, bi)
	lo := min(ri, gi, bi)
	v = uint8(hi)
	if hi == lo {
		return 0, 0, v
	}
	delta := hi - lo
	s = uint8((255*delta + hi/2) / hi)

	// Position on the hue circle in units of delta, range [0, 6*delta).
	var h6 int32
	switch hi {
	case ri:
		h6 = gi - bi
	case gi:
		h6 = 2*delta + bi - ri
	default:
		h6 = 4*delta + ri - gi
	}
	if h6 < 0 {
		h6 += 6 * delta
	}
	hv := (h6*255*2 + 6*delta) / (12 * delta)
	if hv > 255 {
		hv = 255
	}
	return uint8(hv), s, v
}

func hsvToRGB(h, s, v uint8) (r, g, b uint8) {
	if s == 0 {
		return v, v, v
	}
	hh := int32(h) * 6
	sector := (hh / 255) % 6
	f := hh % 255
	vi, si := int32(v), int32(s)
	p := muldiv255(vi, 255-si)
	q := muldiv255(vi, 255-int32(muldiv255(si, f)))
	t := muldiv255(vi, 255-int32(muldiv255(si, 255-f)))
	switch sector {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// webLevel maps a sample onto the nearest of the six web-safe levels.
func webLevel(v uint8) int {
	return (int(v) + 25) / 51
}

// webIndex returns the web palette index nearest to an RGB triple.
func webIndex(r, g, b uint8) uint8 {
	return uint8(webLevel(r)*36 + webLevel(g)*6 + webLevel(b))
}
