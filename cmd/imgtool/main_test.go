package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/imaging"
	"github.com/gogpu/imaging/pixel"
)

// run executes imgtool with an empty settings file and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "imgtool.toml")
	if err := os.WriteFile(cfg, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func sample(t *testing.T) string {
	t.Helper()
	buf, err := pixel.FromBytes(pixel.ModeRGB, 2, 2, []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "in.ppm")
	if err := imaging.Save(path, buf); err != nil {
		t.Fatal(err)
	}
	return path
}

func open(t *testing.T, path string) *pixel.Buffer {
	t.Helper()
	buf, _, err := imaging.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", sample(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "PPM RGB 2x2 raw") {
		t.Errorf("info output = %q", out)
	}
	if !strings.Contains(out, " B") {
		t.Errorf("info output %q lacks a byte count", out)
	}
}

func TestConvert(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.png")
	if _, err := run(t, "convert", sample(t), dst, "--mode", "L"); err != nil {
		t.Fatal(err)
	}
	if got := open(t, dst); got.Mode() != pixel.ModeL {
		t.Errorf("mode = %s, want L", got.Mode())
	}
	if _, err := run(t, "convert", sample(t), dst, "--mode", "XYZ"); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestResize(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bmp")
	if _, err := run(t, "resize", sample(t), dst, "--width", "1", "--filter", "box"); err != nil {
		t.Fatal(err)
	}
	got := open(t, dst)
	if got.Width() != 1 || got.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", got.Width(), got.Height())
	}
	if _, err := run(t, "resize", sample(t), dst); err == nil {
		t.Error("resize without a size succeeded")
	}
}

func TestRotate(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.tga")
	if _, err := run(t, "rotate", sample(t), dst, "--degrees", "180"); err != nil {
		t.Fatal(err)
	}
	if got := open(t, dst).At(0, 0); got != pixel.RGB(255, 255, 255) {
		t.Errorf("top-left after half turn = %v, want white", got)
	}
}

func TestQuantize(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.png")
	if _, err := run(t, "quantize", sample(t), dst, "--colors", "2", "--method", "octree"); err != nil {
		t.Fatal(err)
	}
	got := open(t, dst)
	if got.Mode() != pixel.ModeP {
		t.Fatalf("mode = %s, want P", got.Mode())
	}
	if n := got.Palette().Len(); n > 2 {
		t.Errorf("palette has %d colors, want at most 2", n)
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		sw, sh, w, h int
		wantW, wantH int
	}{
		{100, 50, 40, 0, 40, 20},
		{100, 50, 0, 10, 20, 10},
		{100, 50, 7, 9, 7, 9},
		{1000, 1, 1, 0, 1, 1},
	}
	for _, tt := range tests {
		w, h := scaledSize(tt.sw, tt.sh, tt.w, tt.h)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("scaledSize(%d, %d, %d, %d) = %d, %d, want %d, %d",
				tt.sw, tt.sh, tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}
