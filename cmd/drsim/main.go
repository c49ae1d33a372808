// Command drsim builds the dual-readout calorimeter geometry and writes
// its placements and meshes.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/export"
	"github.com/chazu/drcal/pkg/logger"
)

type buildFlags struct {
	config    string
	macro     string
	out       string
	meshOut   string
	meshDepth int
}

type latticeFlags struct {
	config string
	macro  string
	module int
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "drsim",
		Short:         "dual-readout calorimeter geometry builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.AddCommand(newBuildCmd(), newLatticeCmd())
	return root
}

// setup loads the configuration and returns an App logging at the
// configured level.
func setup(configPath, macroPath string) (*App, config.Config, error) {
	app := NewApp(nil)
	cfg, err := app.LoadConfig(configPath, macroPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, config.Config{}, err
	}
	app.log = log
	return app, cfg, nil
}

func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "build the geometry and write its placements",
		Long: "build runs the construction and writes one JSON record per placed volume. " +
			"With --mesh-out it also tessellates the tree down to --mesh-depth.",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := setup(f.config, f.macro)
			if err != nil {
				return report(cmd, nil, err)
			}
			defer app.log.Sync()

			res, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return report(cmd, app.log, err)
			}
			if err := writeTo(f.out, cmd.OutOrStdout(), func(w io.Writer) error {
				return export.Write(w, res.Geometry)
			}); err != nil {
				return report(cmd, app.log, err)
			}
			if f.meshOut == "" {
				return nil
			}
			meshes, err := app.Meshes(res, f.meshDepth)
			if err != nil {
				return report(cmd, app.log, err)
			}
			app.log.Info("meshes written", "count", len(meshes), "path", f.meshOut)
			return writeTo(f.meshOut, cmd.OutOrStdout(), func(w io.Writer) error {
				return WriteMeshes(w, meshes)
			})
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "YAML config overlaid on the defaults")
	cmd.Flags().StringVar(&f.macro, "macro", "", "macro file evaluated after the config")
	cmd.Flags().StringVar(&f.out, "out", "", "placements output path (default stdout)")
	cmd.Flags().StringVar(&f.meshOut, "mesh-out", "", "mesh output path")
	cmd.Flags().IntVar(&f.meshDepth, "mesh-depth", 1, "deepest level meshed, 0 for all")
	return cmd
}

func newLatticeCmd() *cobra.Command {
	var f latticeFlags
	cmd := &cobra.Command{
		Use:   "lattice",
		Short: "print the fiber lattice of one module",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := setup(f.config, f.macro)
			if err != nil {
				return report(cmd, nil, err)
			}
			defer app.log.Sync()
			return report(cmd, app.log, app.LatticeReport(cmd.OutOrStdout(), cfg, f.module))
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "YAML config overlaid on the defaults")
	cmd.Flags().StringVar(&f.macro, "macro", "", "macro file evaluated after the config")
	cmd.Flags().IntVar(&f.module, "module", 0, "module index")
	return cmd
}

// report logs err through log, or stderr before a logger exists, and
// returns it unchanged.
func report(cmd *cobra.Command, log *logger.Logger, err error) error {
	if err == nil {
		return nil
	}
	if log != nil {
		log.Error("drsim failed", "command", cmd.Name(), "error", err)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "drsim %s: %v\n", cmd.Name(), err)
	}
	return err
}

// writeTo runs write against the file at path, or against stdout when
// path is empty.
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
