// Package ops implements whole-buffer operations: flips and quarter turns,
// band split and merge, blending and compositing, lookup tables, and
// statistics such as histograms and bounding boxes.
//
// Operations never modify their inputs. Where two buffers are combined
// they must share mode and size.
package ops
