// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package codec defines the streaming contract between image file formats
// and pixel buffers, and the registry that selects a format for a stream.
//
// Decoders and encoders never perform I/O. A Decoder is fed byte slices and
// reports StatusNeedMoreInput when it cannot advance; an Encoder fills the
// slice it is given and reports progress. Both keep all state between calls,
// so the caller decides when bytes arrive and may abandon a stream at any
// point. FrameReader and EncodeTo adapt them to io.Reader and io.Writer.
//
// Format packages register a Descriptor from init. The first call to Default
// freezes the process-wide registry.
package codec

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// Status is the outcome of a successful Decode call.
type Status uint8

const (
	// StatusNeedMoreInput means every buffered byte was consumed without
	// completing a frame.
	StatusNeedMoreInput Status = iota
	// StatusFrame means a frame is complete. The decoder pauses until
	// NextFrame is called.
	StatusFrame
	// StatusDone means the stream has no more frames.
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusNeedMoreInput:
		return "NeedMoreInput"
	case StatusFrame:
		return "Frame"
	case StatusDone:
		return "Done"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// FrameMeta describes a decoded frame beyond its pixels.
type FrameMeta struct {
	// Format is the descriptor name of the decoding format.
	Format string
	// Index counts frames from zero.
	Index int
	// Offset positions the frame on the logical canvas.
	Offset pixel.Point
	// CanvasWidth and CanvasHeight give the logical screen size of
	// multi-frame formats; zero otherwise.
	CanvasWidth, CanvasHeight int
	// DelayMS is the display duration of an animation frame.
	DelayMS int
	// Disposal is the GIF disposal method of the frame.
	Disposal int
	// Transparent is the transparent palette index, or -1.
	Transparent int
	// Loop is the animation loop count (0 loops forever), or -1 if absent.
	Loop int
	// Interlaced reports interlaced or progressive storage.
	Interlaced bool
	// Compression names the compression scheme of the stored pixels.
	Compression string
	// Text holds textual metadata such as PNG text chunks and GIF comments.
	Text map[string]string
}

// NewMeta returns metadata for a frame of the named format with the
// optional fields marked absent.
func NewMeta(format string) FrameMeta {
	return FrameMeta{Format: format, Transparent: -1, Loop: -1}
}

// Result is the outcome of a Decode call.
type Result struct {
	Status Status
	// Frame is set with StatusFrame. Ownership moves to the caller.
	Frame *pixel.Buffer
	Meta  FrameMeta
	// Partial marks a frame cut short by the end of the stream. Rows that
	// were not decoded are zero.
	Partial bool
}

// Decoder is an incremental, resumable decoder for one stream.
type Decoder interface {
	// Decode buffers a copy of p and advances as far as the buffered bytes
	// allow. eof reports that no bytes follow p. Decode while a frame is
	// pending returns ErrInvalidArgument and does not buffer p.
	Decode(p []byte, eof bool) (Result, error)
	// NextFrame releases a pending frame so decoding can continue.
	NextFrame() error
}

// Progress reports the outcome of an Encode call.
type Progress struct {
	Written int
	Done    bool
}

// Encoder serializes one buffer incrementally.
type Encoder interface {
	// Encode writes at most len(dst) bytes. A zero-length dst returns
	// ErrInvalidArgument.
	Encode(dst []byte) (Progress, error)
}

// DefaultMaxPixels bounds decoded frame sizes unless DecodeOptions overrides
// it.
const DefaultMaxPixels = 178956970

// Hint supplies the geometry of headerless formats.
type Hint struct {
	Mode          pixel.Mode
	Width, Height int
	// RawMode names the file layout of a row; see package packing.
	RawMode string
}

// DecodeOptions configures a decoder.
type DecodeOptions struct {
	// AllowPartial returns a Partial frame instead of ErrTruncated when the
	// stream ends inside pixel data.
	AllowPartial bool
	// MaxPixels bounds width*height of every frame. Zero selects
	// DefaultMaxPixels; a negative value disables the check.
	MaxPixels int64
	Hint      *Hint
}

// CheckSize validates frame dimensions declared by a stream before anything
// is allocated.
func (o DecodeOptions) CheckSize(format string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s: dimensions %dx%d: %w", format, width, height, pixel.ErrCorrupt)
	}
	limit := o.MaxPixels
	if limit == 0 {
		limit = DefaultMaxPixels
	}
	if limit > 0 && int64(width)*int64(height) > limit {
		return fmt.Errorf("%s: %dx%d exceeds %d pixels: %w", format, width, height, limit, pixel.ErrResourceExhausted)
	}
	return nil
}

// EncodeOptions configures an encoder. Formats read the fields that apply
// to them and ignore the rest.
type EncodeOptions struct {
	// Quality for lossy formats, 1..100. Zero selects the format default.
	Quality int
	// Compression level for deflate based formats, 0..9. Zero selects the
	// format default; use -1 for no compression.
	Compression int
	// RLE enables run-length encoding where a format offers it.
	RLE bool
	// Text is stored as textual metadata.
	Text map[string]string
	// Frames follow the primary buffer in multi-frame formats.
	Frames []*pixel.Buffer
	// Loop is the animation loop count; 0 loops forever.
	Loop int
	// DelayMS is the display duration of each animation frame.
	DelayMS int
	// RawMode selects the row layout of headerless formats.
	RawMode string
}

// Caps is a set of format capabilities.
type Caps uint8

const (
	CapMultiFrame Caps = 1 << iota
	CapIncremental
	CapRandomAccess
	CapLossless
)

// Has reports whether every capability in c2 is in c.
func (c Caps) Has(c2 Caps) bool { return c&c2 == c2 }

// Descriptor describes one registered format.
type Descriptor struct {
	Name       string
	Extensions []string
	MIMEType   string
	// Sniff reports whether a stream prefix belongs to the format. A nil
	// Sniff excludes the format from detection.
	Sniff func(prefix []byte) bool
	// Priority orders sniffing; higher runs first. Weak heuristics use a
	// negative priority.
	Priority   int
	NewDecoder func(DecodeOptions) (Decoder, error)
	NewEncoder func(*pixel.Buffer, EncodeOptions) (Encoder, error)
	Caps       Caps
}

// CanDecode reports whether the format has a decoder.
func (d *Descriptor) CanDecode() bool { return d.NewDecoder != nil }

// CanEncode reports whether the format has an encoder.
func (d *Descriptor) CanEncode() bool { return d.NewEncoder != nil }
