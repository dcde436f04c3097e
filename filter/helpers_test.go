package filter

import (
	"testing"

	"github.com/gogpu/imaging/pixel"
)

// gray builds an L buffer from rows of samples.
func gray(t *testing.T, rows ...[]byte) *pixel.Buffer {
	t.Helper()
	var data []byte
	for _, r := range rows {
		data = append(data, r...)
	}
	buf, err := pixel.FromBytes(pixel.ModeL, len(rows[0]), len(rows), data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return buf
}

// uniform returns a buffer of mode filled with p.
func uniform(t *testing.T, mode pixel.Mode, w, h int, p pixel.Pixel) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.Allocate(mode, w, h)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := buf.Fill(p); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	return buf
}

func sameBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
