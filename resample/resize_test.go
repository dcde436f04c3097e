package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/imaging/pixel"
)

func filled(t *testing.T, mode pixel.Mode, w, h int, p pixel.Pixel) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.Allocate(mode, w, h)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Fill(p); err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestCoefficientsSumToOne(t *testing.T) {
	sizes := [][2]int{{4, 2}, {2, 4}, {1, 7}, {7, 1}, {3, 3}, {100, 13}, {13, 100}, {5, 1000}}
	for _, f := range Filters() {
		for _, sz := range sizes {
			cs := Coefficients(sz[0], sz[1], f)
			if len(cs) != sz[1] {
				t.Fatalf("%s %v: %d contributions", f.Name, sz, len(cs))
			}
			for i, c := range cs {
				var sum float64
				for _, w := range c.Weights {
					sum += w
				}
				if math.Abs(sum-1) > 1e-9 {
					t.Errorf("%s %v: output %d weights sum to %v", f.Name, sz, i, sum)
				}
				if c.Start < 0 || c.Start+len(c.Weights) > sz[0] {
					t.Errorf("%s %v: output %d window [%d,%d) outside input", f.Name, sz, i, c.Start, c.Start+len(c.Weights))
				}
			}
			for i, c := range toFixed(cs) {
				var sum int64
				for _, w := range c.weights {
					sum += w
				}
				if sum != fixedOne {
					t.Errorf("%s %v: output %d fixed weights sum to %d", f.Name, sz, i, sum)
				}
			}
		}
	}
}

func TestCoefficientsBoxHalving(t *testing.T) {
	cs := Coefficients(4, 2, Box)
	want := []Contribution{
		{Start: 0, Weights: []float64{0.5, 0.5}},
		{Start: 2, Weights: []float64{0.5, 0.5}},
	}
	for i := range want {
		if cs[i].Start != want[i].Start || len(cs[i].Weights) != 2 ||
			cs[i].Weights[0] != 0.5 || cs[i].Weights[1] != 0.5 {
			t.Errorf("contribution %d = %+v, want %+v", i, cs[i], want[i])
		}
	}
}

func TestCoefficientsSupportWiderThanImage(t *testing.T) {
	// Lanczos upscaling a single pixel: every tap folds onto pixel 0.
	for _, c := range Coefficients(1, 5, Lanczos) {
		if c.Start != 0 || len(c.Weights) != 1 || math.Abs(c.Weights[0]-1) > 1e-12 {
			t.Fatalf("contribution = %+v, want single unit weight on 0", c)
		}
	}
}

func TestResizeUniformGrayBox(t *testing.T) {
	src := filled(t, pixel.ModeL, 4, 4, pixel.Gray(137))
	dst, err := Resize(src, 2, 2, Box)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Width() != 2 || dst.Height() != 2 {
		t.Fatalf("size %dx%d", dst.Width(), dst.Height())
	}
	for _, v := range dst.Data() {
		if v != 137 {
			t.Fatalf("data = %v, want all 137", dst.Data())
		}
	}
}

func TestResizeUniformIsInvariant(t *testing.T) {
	tests := []struct {
		mode pixel.Mode
		p    pixel.Pixel
	}{
		{pixel.ModeL, pixel.Gray(255)},
		{pixel.ModeRGB, pixel.RGB(10, 200, 255)},
		{pixel.ModeRGBA, pixel.RGBA(10, 200, 255, 99)},
		{pixel.ModeLA, pixel.Pixel{77, 1}},
		{pixel.ModeCMYK, pixel.Pixel{1, 2, 3, 4}},
		{pixel.ModeI16, pixel.Gray(60000)},
		{pixel.ModeI, pixel.Gray(-123456)},
		{pixel.ModeF, pixel.Gray(0.25)},
	}
	sizes := [][2]int{{3, 11}, {17, 2}, {1, 1}, {40, 40}}
	for _, tt := range tests {
		for _, f := range Filters() {
			t.Run(tt.mode.String()+"/"+f.Name, func(t *testing.T) {
				src := filled(t, tt.mode, 9, 6, tt.p)
				for _, sz := range sizes {
					dst, err := Resize(src, sz[0], sz[1], f)
					if err != nil {
						t.Fatal(err)
					}
					for y := range sz[1] {
						for x := range sz[0] {
							if got := dst.At(x, y); got != tt.p {
								t.Fatalf("%v at (%d,%d) = %v, want %v", sz, x, y, got, tt.p)
							}
						}
					}
				}
			})
		}
	}
}

func TestResizeNearest(t *testing.T) {
	src, err := pixel.FromBytes(pixel.ModeL, 4, 1, []byte{10, 20, 30, 40})
	if err != nil {
		t.Fatal(err)
	}
	down, err := Resize(src, 2, 1, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{20, 40}; string(down.Data()) != string(want) {
		t.Errorf("down = %v, want %v", down.Data(), want)
	}
	up, err := Resize(src, 8, 1, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{10, 10, 20, 20, 30, 30, 40, 40}; string(up.Data()) != string(want) {
		t.Errorf("up = %v, want %v", up.Data(), want)
	}
}

func TestResizeNearestIndexedKeepsPalette(t *testing.T) {
	src, err := pixel.FromBytes(pixel.Mode1, 3, 1, []byte{0xA0})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := Resize(src, 6, 2, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	for y := range 2 {
		if got := dst.Row(y)[0]; got != 0xCC {
			t.Errorf("row %d = %08b, want 11001100", y, got)
		}
	}

	p, err := pixel.Allocate(pixel.ModeP, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	pal, _ := pixel.NewPalette([]pixel.Color{{R: 1, A: 255}, {G: 2, A: 255}})
	if err := p.SetPalette(pal); err != nil {
		t.Fatal(err)
	}
	q, err := Resize(p, 5, 5, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Palette().Equal(pal) {
		t.Error("palette not carried over")
	}
}

func TestResizeLinearGradient(t *testing.T) {
	src, err := pixel.FromBytes(pixel.ModeL, 2, 1, []byte{0, 255})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := Resize(src, 4, 1, Bilinear)
	if err != nil {
		t.Fatal(err)
	}
	// Centers at 0.25, 0.75, 1.25, 1.75 in source space; edges replicate.
	if want := []byte{0, 64, 191, 255}; string(dst.Data()) != string(want) {
		t.Errorf("got %v, want %v", dst.Data(), want)
	}
}

func TestResizePremultipliesAlpha(t *testing.T) {
	// An invisible pixel must not bleed its color into a visible neighbor.
	src, err := pixel.FromBytes(pixel.ModeRGBA, 2, 1, []byte{255, 0, 0, 255, 0, 255, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := Resize(src, 1, 1, Box)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{255, 0, 0, 128}; string(dst.Data()) != string(want) {
		t.Errorf("got %v, want %v", dst.Data(), want)
	}
}

func TestResizeErrors(t *testing.T) {
	l := filled(t, pixel.ModeL, 4, 4, pixel.Gray(1))
	p := filled(t, pixel.ModeP, 4, 4, pixel.Gray(1))
	one := filled(t, pixel.Mode1, 4, 4, pixel.Gray(255))
	tests := []struct {
		name string
		src  *pixel.Buffer
		w, h int
		f    *Filter
	}{
		{"nil buffer", nil, 2, 2, Box},
		{"zero width", l, 0, 2, Box},
		{"zero height", l, 2, 0, Box},
		{"negative", l, -1, 2, Box},
		{"nil filter", l, 2, 2, nil},
		{"P with bilinear", p, 2, 2, Bilinear},
		{"1 with box", one, 2, 2, Box},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resize(tt.src, tt.w, tt.h, tt.f); !errors.Is(err, pixel.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestThumbnail(t *testing.T) {
	src := filled(t, pixel.ModeRGB, 400, 100, pixel.RGB(1, 2, 3))
	tests := []struct {
		maxW, maxH int
		wantW      int
		wantH      int
	}{
		{100, 100, 100, 25},
		{1000, 50, 200, 50},
		{400, 100, 400, 100},
		{1, 1, 1, 1},
	}
	for _, tt := range tests {
		dst, err := Thumbnail(src, tt.maxW, tt.maxH, Bicubic)
		if err != nil {
			t.Fatal(err)
		}
		if dst.Width() != tt.wantW || dst.Height() != tt.wantH {
			t.Errorf("Thumbnail(%d,%d) = %dx%d, want %dx%d", tt.maxW, tt.maxH,
				dst.Width(), dst.Height(), tt.wantW, tt.wantH)
		}
	}
}

func TestFilterByName(t *testing.T) {
	for _, f := range Filters() {
		got, ok := FilterByName(f.Name)
		if !ok || got != f {
			t.Errorf("FilterByName(%q) = %v, %v", f.Name, got, ok)
		}
	}
	if got, ok := FilterByName("ANTIALIAS"); !ok || got != Lanczos {
		t.Errorf("FilterByName(ANTIALIAS) = %v, %v", got, ok)
	}
	if _, ok := FilterByName("sinc"); ok {
		t.Error("unknown filter found")
	}
}

func TestPassOrder(t *testing.T) {
	if !horizontalFirst(100, 10, 10, 10) {
		t.Error("shrinking width first should be preferred")
	}
	if horizontalFirst(10, 100, 10, 10) {
		t.Error("shrinking height first should be preferred")
	}
}

func TestCachedCoefficientsShared(t *testing.T) {
	a := cachedCoefficients(17, 5, Lanczos)
	b := cachedCoefficients(17, 5, Lanczos)
	if a != b {
		t.Error("second lookup recomputed the coefficients")
	}
	if len(a.float) != 5 || len(a.fixed) != 5 {
		t.Fatalf("got %d float and %d fixed contributions, want 5", len(a.float), len(a.fixed))
	}
	if c := cachedCoefficients(17, 5, Bicubic); c == a {
		t.Error("filters share a cache entry")
	}
}
