// Command imgtool inspects and transforms raster images with the imaging
// library.
//
// Usage:
//
//	imgtool info photo.png
//	imgtool convert photo.png photo.bmp --mode L
//	imgtool resize photo.png small.jpg --width 320 --filter lanczos
//	imgtool rotate photo.png tilted.png --degrees 30 --expand
//	imgtool quantize photo.png photo.gif --colors 16 --dither
//
// Settings are read from $XDG_CONFIG_HOME/imgtool/config.toml and then
// ./imgtool.toml; flags override them. The output format follows the output
// file extension.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
