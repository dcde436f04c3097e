package ops

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// AlphaComposite returns src drawn over dst, both RGBA with straight alpha:
//
//	A = Sa + Da*(1-Sa)
//	C = (Sc*Sa + Dc*Da*(1-Sa)) / A
//
// evaluated in integer arithmetic with rounding to nearest.
func AlphaComposite(dst, src *pixel.Buffer) (*pixel.Buffer, error) {
	if err := sameShape("alpha composite", dst, src); err != nil {
		return nil, err
	}
	if dst.Mode() != pixel.ModeRGBA {
		return nil, fmt.Errorf("ops: alpha composite of %s buffers: %w", dst.Mode(), pixel.ErrInvalidArgument)
	}
	out := dst.Clone()
	for y := range out.Height() {
		d, s := out.Row(y), src.Row(y)
		for i := 0; i < len(d); i += 4 {
			sourceOver(d[i:i+4], s[i:i+4])
		}
	}
	return out, nil
}

// sourceOver composites the straight-alpha pixel s onto d in place.
func sourceOver(d, s []byte) {
	sa := uint32(s[3])
	switch sa {
	case 0:
		return
	case 255:
		copy(d, s)
		return
	}
	// Weights scaled by 255*255.
	ws := sa * 255
	wd := uint32(d[3]) * (255 - sa)
	den := ws + wd
	for c := range 3 {
		d[c] = byte((uint32(s[c])*ws + uint32(d[c])*wd + den/2) / den)
	}
	d[3] = byte((den + 127) / 255)
}
