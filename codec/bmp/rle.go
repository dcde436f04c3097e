package bmp

import (
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/pixel"
)

// readRLE decodes every complete RLE8 or RLE4 record that is buffered. It
// reports true at the end-of-bitmap record or once every row is filled.
func (d *decoder) readRLE(in *codec.Input) (bool, error) {
	rle4 := d.hdr.compression == biRLE4
	for d.y < d.hdr.height {
		b, ok := in.Peek(2)
		if !ok {
			return false, nil
		}
		count, val := int(b[0]), b[1]
		if count > 0 {
			in.Skip(2)
			for i := range count {
				v := val
				if rle4 {
					v = nibble(val, i)
				}
				if err := d.put(v); err != nil {
					return false, err
				}
			}
			continue
		}
		switch val {
		case 0: // end of line
			in.Skip(2)
			d.x = 0
			d.y++
		case 1: // end of bitmap
			in.Skip(2)
			return true, nil
		case 2: // delta
			b, ok := in.Next(4)
			if !ok {
				return false, nil
			}
			d.x += int(b[2])
			d.y += int(b[3])
		default: // absolute run, padded to 16 bits
			n := int(val)
			size := n
			if rle4 {
				size = (n + 1) / 2
			}
			size += size & 1
			b, ok := in.Next(2 + size)
			if !ok {
				return false, nil
			}
			lit := b[2:]
			for i := range n {
				var v byte
				if rle4 {
					v = nibble(lit[i/2], i)
				} else {
					v = lit[i]
				}
				if err := d.put(v); err != nil {
					return false, err
				}
			}
		}
	}
	return true, nil
}

// nibble returns the high nibble of v for even i and the low one for odd i.
func nibble(v byte, i int) byte {
	if i%2 == 0 {
		return v >> 4
	}
	return v & 0x0f
}

// put stores index v at the cursor and advances it. Pixels outside the
// frame are dropped.
func (d *decoder) put(v byte) error {
	if d.x < d.hdr.width && d.y < d.hdr.height {
		if d.frame.Mode() == pixel.ModeP && int(v) >= d.hdr.palette.Len() {
			return fmt.Errorf("bmp: RLE index %d beyond %d colors: %w", v, d.hdr.palette.Len(), pixel.ErrCorrupt)
		}
		d.frame.Row(d.row(d.y))[d.x] = v
	}
	d.x++
	return nil
}
