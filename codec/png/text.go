package png

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"

	"github.com/gogpu/imaging/pixel"
)

// maxKeyword is the longest text chunk keyword.
const maxKeyword = 79

var latin1 = charmap.ISO8859_1

// readText parses a tEXt, zTXt or iTXt chunk body.
func readText(typ string, b []byte) (key, value string, err error) {
	k, rest, ok := bytes.Cut(b, []byte{0})
	if !ok || len(k) == 0 || len(k) > maxKeyword {
		return "", "", errors.New("bad keyword")
	}
	kb, err := latin1.NewDecoder().Bytes(k)
	if err != nil {
		return "", "", err
	}
	key = string(kb)

	switch typ {
	case "tEXt":
		v, err := latin1.NewDecoder().Bytes(rest)
		return key, string(v), err
	case "zTXt":
		if len(rest) < 1 || rest[0] != 0 {
			return "", "", errors.New("unknown compression method")
		}
		raw, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		v, err := latin1.NewDecoder().Bytes(raw)
		return key, string(v), err
	}

	// iTXt: flag, method, language tag, translated keyword, text.
	if len(rest) < 2 {
		return "", "", errors.New("short iTXt")
	}
	compressed, method := rest[0] == 1, rest[1]
	fields := bytes.SplitN(rest[2:], []byte{0}, 3)
	if len(fields) != 3 {
		return "", "", errors.New("short iTXt")
	}
	text := fields[2]
	if compressed {
		if method != 0 {
			return "", "", errors.New("unknown compression method")
		}
		if text, err = inflate(text); err != nil {
			return "", "", err
		}
	}
	if !utf8.Valid(text) {
		return "", "", errors.New("iTXt text is not UTF-8")
	}
	return key, string(text), nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxChunk+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxChunk {
		return nil, fmt.Errorf("text inflates past %d bytes", maxChunk)
	}
	return out, nil
}

// textChunk returns the type and body of the chunk storing key and value:
// tEXt when both are Latin-1, iTXt otherwise.
func textChunk(key, value string) (string, []byte, error) {
	k, err := latin1.NewEncoder().Bytes([]byte(key))
	if err != nil || len(k) == 0 || len(k) > maxKeyword || bytes.IndexByte(k, 0) >= 0 {
		return "", nil, fmt.Errorf("png: text keyword %q: %w", key, pixel.ErrInvalidArgument)
	}
	if v, err := latin1.NewEncoder().Bytes([]byte(value)); err == nil {
		return "tEXt", append(append(k, 0), v...), nil
	}
	if !utf8.ValidString(value) {
		return "", nil, fmt.Errorf("png: text value of %q is not UTF-8: %w", key, pixel.ErrInvalidArgument)
	}
	body := append(k, 0, 0, 0, 0, 0)
	return "iTXt", append(body, value...), nil
}
