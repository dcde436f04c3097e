package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/imaging"
	"github.com/gogpu/imaging/pixel"
	"github.com/gogpu/imaging/quantize"
	"github.com/gogpu/imaging/resample"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Print format, mode, size and frame count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := a.info(cmd, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) info(cmd *cobra.Command, path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	frames, metas, err := imaging.DecodeAll(f, a.cfg.Options()...)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("%s: no frames", path)
	}
	first, meta := frames[0], metas[0]
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s %dx%d", path, meta.Format, first.Mode(), first.Width(), first.Height())
	if meta.Compression != "" {
		fmt.Fprintf(&b, " %s", meta.Compression)
	}
	if len(frames) > 1 {
		fmt.Fprintf(&b, ", %d frames", len(frames))
	}
	fmt.Fprintf(&b, ", %s", humanize.IBytes(uint64(st.Size())))
	fmt.Fprintln(cmd.OutOrStdout(), b.String())
	return nil
}

// transform opens in, applies fn and saves the result to out.
func (a *app) transform(cmd *cobra.Command, in, out string, fn func(*pixel.Buffer) (*pixel.Buffer, error)) error {
	src, _, err := imaging.Open(in, a.cfg.Options()...)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	dst, err := fn(src)
	if err != nil {
		return err
	}
	if err := imaging.Save(out, dst, a.cfg.Options()...); err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}
	if st, err := os.Stat(out); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %dx%d, %s\n", out, dst.Mode(), dst.Width(), dst.Height(),
			humanize.IBytes(uint64(st.Size())))
	}
	return nil
}

func newConvertCmd(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode an image, optionally converting its mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transform(cmd, args[0], args[1], func(src *pixel.Buffer) (*pixel.Buffer, error) {
				if mode == "" {
					return src, nil
				}
				m, ok := pixel.ParseMode(mode)
				if !ok {
					return nil, fmt.Errorf("unknown mode %q", mode)
				}
				return imaging.Convert(src, m)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "target mode (1, L, LA, P, RGB, RGBA, CMYK, YCbCr, HSV, I;16, I, F)")
	return cmd
}

func newResizeCmd(a *app) *cobra.Command {
	var (
		width, height int
		filter        string
	)
	cmd := &cobra.Command{
		Use:   "resize IN OUT",
		Short: "Resample an image; a missing dimension keeps the aspect ratio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 && height <= 0 {
				return fmt.Errorf("resize: --width or --height is required")
			}
			opts := a.cfg.Options()
			if filter != "" {
				f, ok := resample.FilterByName(filter)
				if !ok {
					return fmt.Errorf("unknown filter %q", filter)
				}
				opts = append(opts, imaging.WithFilter(f))
			}
			return a.transform(cmd, args[0], args[1], func(src *pixel.Buffer) (*pixel.Buffer, error) {
				w, h := scaledSize(src.Width(), src.Height(), width, height)
				return imaging.Resize(src, w, h, opts...)
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "output width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "output height in pixels")
	cmd.Flags().StringVar(&filter, "filter", "", "resampling filter (default from config: bicubic)")
	return cmd
}

// scaledSize fills in a missing target dimension from the source aspect
// ratio.
func scaledSize(sw, sh, w, h int) (int, int) {
	switch {
	case w <= 0:
		w = max(1, (sw*h+sh/2)/sh)
	case h <= 0:
		h = max(1, (sh*w+sw/2)/sw)
	}
	return w, h
}

func newRotateCmd(a *app) *cobra.Command {
	var (
		degrees float64
		expand  bool
	)
	cmd := &cobra.Command{
		Use:   "rotate IN OUT",
		Short: "Rotate an image counterclockwise around its center",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transform(cmd, args[0], args[1], func(src *pixel.Buffer) (*pixel.Buffer, error) {
				return imaging.Rotate(src, degrees, expand)
			})
		},
	}
	cmd.Flags().Float64Var(&degrees, "degrees", 90, "angle in degrees")
	cmd.Flags().BoolVar(&expand, "expand", false, "grow the canvas to hold the rotated image")
	return cmd
}

func newQuantizeCmd(a *app) *cobra.Command {
	var (
		colors int
		method string
		dither bool
	)
	cmd := &cobra.Command{
		Use:   "quantize IN OUT",
		Short: "Reduce an image to a palette",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.cfg.Options()
			if method != "" {
				m, ok := quantize.ParseMethod(strings.ToLower(method))
				if !ok {
					return fmt.Errorf("unknown method %q", method)
				}
				opts = append(opts, imaging.WithQuantizer(m))
			}
			if dither {
				opts = append(opts, imaging.WithDither())
			}
			n := a.cfg.Quantize.Colors
			if colors > 0 {
				n = colors
			}
			return a.transform(cmd, args[0], args[1], func(src *pixel.Buffer) (*pixel.Buffer, error) {
				return imaging.Quantize(src, n, opts...)
			})
		},
	}
	cmd.Flags().IntVar(&colors, "colors", 0, "palette size, 1-256 (default from config: 256)")
	cmd.Flags().StringVar(&method, "method", "", "mediancut, maxcoverage or octree")
	cmd.Flags().BoolVar(&dither, "dither", false, "apply Floyd-Steinberg dithering")
	return cmd
}
