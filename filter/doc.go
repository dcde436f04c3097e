// Package filter implements neighborhood filters over 8-bit pixel buffers:
// box and Gaussian blur, unsharp masking, small kernel convolution and rank
// filters.
//
// Filters accept buffers of mode L, LA, RGB, RGBA and CMYK and treat every
// band independently. Pixels past the border are replicated from the
// nearest edge. Inputs are never modified; each filter returns a new buffer
// of the source mode.
package filter
