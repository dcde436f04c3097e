package pixel

import (
	"errors"
	"testing"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		width   int
		height  int
		wantErr error
	}{
		{"valid RGB", ModeRGB, 100, 50, nil},
		{"valid 1", Mode1, 13, 3, nil},
		{"1x1 minimum", ModeF, 1, 1, nil},
		{"zero width", ModeRGB, 0, 10, ErrInvalidArgument},
		{"zero height", ModeRGB, 10, 0, ErrInvalidArgument},
		{"negative width", ModeL, -1, 10, ErrInvalidArgument},
		{"unknown mode", ModeUnknown, 10, 10, ErrInvalidArgument},
		{"out of range mode", Mode(99), 10, 10, ErrInvalidArgument},
		{"too large", ModeRGBA, 1 << 20, 1 << 20, ErrResourceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Allocate(tt.mode, tt.width, tt.height)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Allocate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if buf.Width() != tt.width || buf.Height() != tt.height {
				t.Errorf("size = %dx%d, want %dx%d", buf.Width(), buf.Height(), tt.width, tt.height)
			}
			if buf.Stride() != tt.mode.RowBytes(tt.width) {
				t.Errorf("Stride() = %d, want %d", buf.Stride(), tt.mode.RowBytes(tt.width))
			}
			if len(buf.Data()) != buf.Stride()*tt.height {
				t.Errorf("len(Data()) = %d, want %d", len(buf.Data()), buf.Stride()*tt.height)
			}
		})
	}
}

func TestAllocateZeroValueEveryMode(t *testing.T) {
	for _, m := range Modes() {
		t.Run(m.String(), func(t *testing.T) {
			buf, err := Allocate(m, 5, 3)
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			for y := range 3 {
				for x := range 5 {
					p, err := buf.GetPixel(x, y)
					if err != nil {
						t.Fatalf("GetPixel(%d,%d): %v", x, y, err)
					}
					if p != (Pixel{}) {
						t.Fatalf("GetPixel(%d,%d) = %v, want zero", x, y, p)
					}
				}
			}
			if m.IsIndexed() && buf.Palette() == nil {
				t.Error("indexed buffer without palette")
			}
		})
	}
}

func TestGetSetPixelRoundTrip(t *testing.T) {
	tests := []struct {
		mode Mode
		p    Pixel
	}{
		{Mode1, Gray(255)},
		{ModeL, Gray(200)},
		{ModeLA, Pixel{10, 20}},
		{ModeP, Gray(77)},
		{ModePA, Pixel{3, 128}},
		{ModeRGB, RGB(1, 2, 3)},
		{ModeRGBA, RGBA(250, 128, 0, 17)},
		{ModeCMYK, Pixel{1, 2, 3, 4}},
		{ModeYCbCr, RGB(16, 128, 240)},
		{ModeHSV, RGB(0, 255, 255)},
		{ModeI16, Gray(65535)},
		{ModeI, Gray(-123456)},
		{ModeF, Gray(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			buf, err := Allocate(tt.mode, 9, 2)
			if err != nil {
				t.Fatal(err)
			}
			if err := buf.SetPixel(8, 1, tt.p); err != nil {
				t.Fatalf("SetPixel: %v", err)
			}
			got, err := buf.GetPixel(8, 1)
			if err != nil {
				t.Fatalf("GetPixel: %v", err)
			}
			if got != tt.p {
				t.Errorf("GetPixel = %v, want %v", got, tt.p)
			}
			if other := buf.At(7, 1); other != (Pixel{}) {
				t.Errorf("neighbour changed to %v", other)
			}
		})
	}
}

func TestPixelOutOfBounds(t *testing.T) {
	buf, _ := Allocate(ModeRGB, 4, 4)
	for _, pt := range []Point{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {100, 100}} {
		if _, err := buf.GetPixel(pt.X, pt.Y); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("GetPixel(%v) error = %v, want ErrOutOfBounds", pt, err)
		}
		if err := buf.SetPixel(pt.X, pt.Y, RGB(1, 1, 1)); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetPixel(%v) error = %v, want ErrOutOfBounds", pt, err)
		}
		if KindOf(buf.SetPixel(pt.X, pt.Y, Pixel{})) != KindOutOfBounds {
			t.Errorf("KindOf(SetPixel(%v)) mismatch", pt)
		}
	}
}

func TestSetPixelRejectsBadSamples(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		p    Pixel
	}{
		{"L above range", ModeL, Gray(256)},
		{"L negative", ModeL, Gray(-1)},
		{"L fractional", ModeL, Gray(1.5)},
		{"I16 above range", ModeI16, Gray(70000)},
		{"RGB band 2", ModeRGB, RGB(0, 0, 300)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, _ := Allocate(tt.mode, 2, 2)
			if err := buf.SetPixel(0, 0, tt.p); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("SetPixel error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestPaletteIndexInvariant(t *testing.T) {
	buf, _ := Allocate(ModeP, 2, 1)
	small, err := NewPalette([]Color{{0, 0, 0, 255}, {255, 255, 255, 255}})
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.SetPixel(1, 0, Gray(200)); err != nil {
		t.Fatal(err)
	}
	if err := buf.SetPalette(small); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetPalette with stored index 200 error = %v, want ErrInvalidArgument", err)
	}
	if err := buf.SetPixel(1, 0, Gray(1)); err != nil {
		t.Fatal(err)
	}
	if err := buf.SetPalette(small); err != nil {
		t.Fatalf("SetPalette: %v", err)
	}
	if err := buf.SetPixel(0, 0, Gray(2)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetPixel index 2 error = %v, want ErrInvalidArgument", err)
	}

	rgb, _ := Allocate(ModeRGB, 1, 1)
	if err := rgb.SetPalette(small); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetPalette on RGB error = %v", err)
	}
}

func TestFromBytes(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0x00, 0x01}
	buf, err := FromBytes(Mode1, 3, 2, data[:2])
	if err != nil {
		t.Fatal(err)
	}
	if buf.Data()[0] != 0xE0 {
		t.Errorf("padding bits not cleared: %#x", buf.Data()[0])
	}
	if _, err := FromBytes(ModeRGB, 2, 2, data); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("short data error = %v", err)
	}
}

func TestCrop(t *testing.T) {
	buf, _ := Allocate(ModeRGB, 4, 3)
	for y := range 3 {
		for x := range 4 {
			_ = buf.SetPixel(x, y, RGB(float64(x), float64(y), 9))
		}
	}

	out, err := buf.Crop(R(1, 1, 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if out.Width() != 2 || out.Height() != 2 {
		t.Fatalf("crop size %dx%d", out.Width(), out.Height())
	}
	if got := out.At(1, 1); got != RGB(2, 2, 9) {
		t.Errorf("At(1,1) = %v", got)
	}

	// The crop owns its storage.
	_ = out.SetPixel(0, 0, RGB(99, 99, 99))
	if buf.At(1, 1) == RGB(99, 99, 99) {
		t.Error("crop aliases the source buffer")
	}

	for _, r := range []Rect{R(0, 0, 0, 1), R(3, 0, 2, 1), R(-1, 0, 1, 1)} {
		if _, err := buf.Crop(r); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Crop(%v) error = %v", r, err)
		}
	}
}

func TestCropMode1Unaligned(t *testing.T) {
	buf, _ := Allocate(Mode1, 20, 1)
	for x := 5; x < 15; x += 2 {
		_ = buf.SetPixel(x, 0, Gray(255))
	}
	out, err := buf.Crop(R(5, 0, 10, 1))
	if err != nil {
		t.Fatal(err)
	}
	for x := range 10 {
		want := 0.0
		if x%2 == 0 {
			want = 255
		}
		if got := out.At(x, 0)[0]; got != want {
			t.Errorf("x=%d: got %v, want %v", x, got, want)
		}
	}
}

func TestCloneAndEqual(t *testing.T) {
	buf, _ := Allocate(ModeLA, 3, 3)
	_ = buf.Fill(Pixel{40, 50})
	c := buf.Clone()
	if !buf.Equal(c) {
		t.Fatal("clone not equal")
	}
	_ = c.SetPixel(0, 0, Pixel{1, 1})
	if buf.Equal(c) {
		t.Fatal("clone shares storage")
	}
	other, _ := Allocate(ModeL, 3, 3)
	if buf.Equal(other) {
		t.Error("different modes compare equal")
	}
}

func TestKindString(t *testing.T) {
	if got := KindOf(ErrCorrupt); got != KindCorrupt {
		t.Errorf("KindOf(ErrCorrupt) = %v", got)
	}
	if got := KindOf(errors.New("other")); got != KindUnknown {
		t.Errorf("KindOf(other) = %v", got)
	}
	if ErrTruncated.Error() != "truncated" {
		t.Errorf("ErrTruncated = %q", ErrTruncated.Error())
	}
}
