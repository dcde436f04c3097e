package gif

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

const (
	maxCodeWidth = 12
	tableSize    = 1 << maxCodeWidth
)

// lzwReader is a resumable GIF LZW decoder. Bytes are pushed in with feed and
// decoded strings are handed to emit as soon as their code is complete.
type lzwReader struct {
	litWidth uint
	clear    int
	eoi      int
	width    uint
	next     int
	last     int
	done     bool

	acc   uint32
	nacc  uint
	stack []byte

	prefix [tableSize]uint16
	suffix [tableSize]byte
	first  [tableSize]byte
}

func newLZWReader(litWidth uint) *lzwReader {
	z := &lzwReader{litWidth: litWidth, clear: 1 << litWidth, stack: make([]byte, 0, tableSize)}
	z.eoi = z.clear + 1
	for i := range z.clear {
		z.suffix[i] = byte(i)
		z.first[i] = byte(i)
	}
	z.reset()
	return z
}

func (z *lzwReader) reset() {
	z.width = z.litWidth + 1
	z.next = z.eoi + 1
	z.last = -1
}

// feed decodes p. Codes after the end code are ignored.
func (z *lzwReader) feed(p []byte, emit func([]byte)) error {
	for _, b := range p {
		if z.done {
			return nil
		}
		z.acc |= uint32(b) << z.nacc
		z.nacc += 8
		for z.nacc >= z.width && !z.done {
			code := int(z.acc & (1<<z.width - 1))
			z.acc >>= z.width
			z.nacc -= z.width
			if err := z.code(code, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (z *lzwReader) code(c int, emit func([]byte)) error {
	switch {
	case c == z.clear:
		z.reset()
		return nil
	case c == z.eoi:
		z.done = true
		return nil
	case c < z.next:
		if z.last >= 0 {
			z.add(z.last, z.first[c])
		}
	case c == z.next && z.last >= 0:
		z.add(z.last, z.first[z.last])
	default:
		return fmt.Errorf("gif: lzw code %d with %d table entries: %w", c, z.next, pixel.ErrCorrupt)
	}
	z.last = c
	emit(z.expand(c))
	if z.next == 1<<z.width && z.width < maxCodeWidth {
		z.width++
	}
	return nil
}

// add appends the string of code p followed by s to the table. A full table
// is kept until the next clear code.
func (z *lzwReader) add(p int, s byte) {
	if z.next >= tableSize {
		return
	}
	z.prefix[z.next] = uint16(p)
	z.suffix[z.next] = s
	z.first[z.next] = z.first[p]
	z.next++
}

// expand returns the string of c, valid until the next call.
func (z *lzwReader) expand(c int) []byte {
	z.stack = z.stack[:0]
	for c > z.eoi {
		z.stack = append(z.stack, z.suffix[c])
		c = int(z.prefix[c])
	}
	z.stack = append(z.stack, byte(c))
	for i, j := 0, len(z.stack)-1; i < j; i, j = i+1, j-1 {
		z.stack[i], z.stack[j] = z.stack[j], z.stack[i]
	}
	return z.stack
}
