package packing

import (
	"errors"
	"testing"

	"github.com/gogpu/imaging/pixel"
)

func TestUnpack(t *testing.T) {
	tests := []struct {
		mode  pixel.Mode
		raw   string
		width int
		in    []byte
		want  []byte
	}{
		{pixel.Mode1, "1", 3, []byte{0xFF}, []byte{0xE0}},
		{pixel.Mode1, "1;I", 4, []byte{0x0F}, []byte{0xF0}},
		{pixel.Mode1, "1;R", 8, []byte{0x01}, []byte{0x80}},
		{pixel.ModeL, "L;I", 2, []byte{0, 200}, []byte{255, 55}},
		{pixel.ModeL, "L;16B", 2, []byte{0x12, 0x34, 0xAB, 0xCD}, []byte{0x12, 0xAB}},
		{pixel.ModeL, "L;4", 3, []byte{0x0F, 0x80}, []byte{0, 255, 0x88}},
		{pixel.ModeP, "P;1", 9, []byte{0xA5, 0x80}, []byte{1, 0, 1, 0, 0, 1, 0, 1, 1}},
		{pixel.ModeP, "P;2", 4, []byte{0x1B}, []byte{0, 1, 2, 3}},
		{pixel.ModeP, "P;4", 3, []byte{0x12, 0x30}, []byte{1, 2, 3}},
		{pixel.ModeRGB, "BGR", 2, []byte{1, 2, 3, 4, 5, 6}, []byte{3, 2, 1, 6, 5, 4}},
		{pixel.ModeRGB, "BGRX", 1, []byte{1, 2, 3, 9}, []byte{3, 2, 1}},
		{pixel.ModeRGB, "BGR;15", 1, []byte{0xFF, 0x7F}, []byte{255, 255, 255}},
		{pixel.ModeRGB, "BGR;16", 1, []byte{0x00, 0xF8}, []byte{255, 0, 0}},
		{pixel.ModeRGBA, "BGRA", 1, []byte{1, 2, 3, 4}, []byte{3, 2, 1, 4}},
		{pixel.ModeRGBA, "RGB", 1, []byte{1, 2, 3}, []byte{1, 2, 3, 255}},
		{pixel.ModeRGBA, "BGRA;15", 1, []byte{0x1F, 0x80}, []byte{0, 0, 255, 255}},
		{pixel.ModeI16, "I;16B", 1, []byte{0x01, 0x02}, []byte{0x02, 0x01}},
		{pixel.ModeI, "I;16S", 1, []byte{0xFF, 0xFF}, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{pixel.ModeF, "F;32BF", 1, []byte{0x3F, 0x80, 0, 0}, []byte{0, 0, 0x80, 0x3F}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.raw, func(t *testing.T) {
			u, err := LookupUnpacker(tt.mode, tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := u.RowBytes(tt.width); got != len(tt.in) {
				t.Errorf("RowBytes(%d) = %d, want %d", tt.width, got, len(tt.in))
			}
			dst := make([]byte, tt.mode.RowBytes(tt.width))
			u.Unpack(dst, tt.in, tt.width)
			if string(dst) != string(tt.want) {
				t.Errorf("Unpack = %v, want %v", dst, tt.want)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for k, p := range packers {
		u, err := LookupUnpacker(k.mode, k.raw)
		if err != nil {
			t.Errorf("%s %q has a packer but no unpacker", k.mode, k.raw)
			continue
		}
		const width = 11
		row := make([]byte, k.mode.RowBytes(width))
		for i := range row {
			row[i] = byte(i*53 + 7)
		}
		switch k.mode {
		case pixel.Mode1:
			clearTail(row, width)
		case pixel.ModeP:
			bitsPer := p.Bits
			if bitsPer < 8 {
				for i := range row {
					row[i] &= byte(1<<bitsPer - 1)
				}
			}
		}
		file := make([]byte, p.RowBytes(width))
		p.Pack(file, row, width)
		back := make([]byte, len(row))
		u.Unpack(back, file, width)
		if string(back) != string(row) {
			t.Errorf("%s %q: round trip %v != %v", k.mode, k.raw, back, row)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := LookupUnpacker(pixel.ModeRGB, "GRB"); !errors.Is(err, pixel.ErrUnsupported) {
		t.Errorf("LookupUnpacker error = %v", err)
	}
	if _, err := LookupPacker(pixel.ModeL, "BGR"); !errors.Is(err, pixel.ErrUnsupported) {
		t.Errorf("LookupPacker error = %v", err)
	}
	if got := RawModes(pixel.ModeLA); len(got) != 3 || got[0] != "AL" || got[1] != "LA" || got[2] != "LA;16B" {
		t.Errorf("RawModes(LA) = %v", got)
	}
}
