// Package text draws strings into pixel buffers.
//
// Glyphs are rasterized with golang.org/x/image/font into a coverage mask,
// which is then composited onto the buffer in a solid ink color. Runes are
// laid out one after another with kerning from the face; there is no
// shaping, bidi or line breaking.
//
// # Example usage
//
//	face, err := text.DefaultFace(24)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	buf, _ := pixel.Allocate(pixel.ModeRGB, 200, 40)
//	_, err = text.Draw(buf, face, pixel.Pt(4, 30), "Hello", pixel.RGB(255, 255, 255))
package text
