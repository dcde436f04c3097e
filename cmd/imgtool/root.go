package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/imaging"
	"github.com/gogpu/imaging/internal/config"
)

// app carries the state shared by the subcommands.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "imgtool",
		Short:         "Inspect and transform raster images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.verbose {
				imaging.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "settings file (default: XDG config, then ./imgtool.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log diagnostics to stderr")

	root.AddCommand(
		newInfoCmd(a),
		newConvertCmd(a),
		newResizeCmd(a),
		newRotateCmd(a),
		newQuantizeCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	var err error
	if a.configPath == "" {
		a.cfg, err = config.Load()
		return err
	}
	if _, err := os.Stat(a.configPath); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg, err = config.LoadFiles(a.configPath)
	return err
}
