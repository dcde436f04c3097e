package tiff

// unpackBits expands PackBits data from src into dst and returns the
// number of bytes produced. Output beyond dst is dropped.
func unpackBits(dst, src []byte) int {
	n := 0
	for len(src) > 0 && n < len(dst) {
		c := int8(src[0])
		src = src[1:]
		switch {
		case c >= 0:
			k := min(int(c)+1, len(src))
			n += copy(dst[n:], src[:k])
			src = src[k:]
		case c != -128:
			if len(src) == 0 {
				return n
			}
			for range min(1-int(c), len(dst)-n) {
				dst[n] = src[0]
				n++
			}
			src = src[1:]
		}
	}
	return n
}

// packBits appends the PackBits encoding of src to dst.
func packBits(dst, src []byte) []byte {
	for len(src) > 0 {
		run := 1
		for run < len(src) && run < 128 && src[run] == src[0] {
			run++
		}
		if run > 1 {
			dst = append(dst, byte(1-run), src[0])
			src = src[run:]
			continue
		}
		lit := 1
		for lit < len(src) && lit < 128 && (lit+1 == len(src) || src[lit] != src[lit+1]) {
			lit++
		}
		dst = append(dst, byte(lit-1))
		dst = append(dst, src[:lit]...)
		src = src[lit:]
	}
	return dst
}
