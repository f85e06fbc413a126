package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"Tilt3D/internal/config"
	"Tilt3D/internal/engine"
	"Tilt3D/internal/loader"
	"Tilt3D/internal/logger"
	"Tilt3D/internal/renderer"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath     string
	modelPath      string
	environmentURL string
	width          int32
	height         int32
	logLevel       string
)

// GLFW must be driven from the process's main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd := &cobra.Command{
		Use:   "tilt3d",
		Short: "glTF viewer that tilts the model toward the cursor",
		Long: `tilt3d - glTF model viewer

Renders one glTF model lit by an HDR environment map. Moving the mouse
tilts the model toward the cursor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a JSON config file")
	cmd.Flags().StringVar(&modelPath, "model", config.DefaultModelPath, "glTF model to display")
	cmd.Flags().StringVar(&environmentURL, "environment", config.DefaultEnvironmentURL, "Radiance HDR environment map (URL or path)")
	cmd.Flags().Int32Var(&width, "width", 1280, "Initial window width")
	cmd.Flags().Int32Var(&height, "height", 720, "Initial window height")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	infoCmd := &cobra.Command{
		Use:   "info <model.gltf|model.glb>",
		Short: "Display model information",
		Long:  "Load a glTF model without opening a window and print its node, mesh, vertex and material counts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args[0])
		},
	}
	cmd.AddCommand(infoCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd); err != nil {
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// resolveConfig layers explicitly set flags over the config file over the
// defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.ModelPath = modelPath
	}
	if flags.Changed("environment") {
		cfg.EnvironmentURL = environmentURL
	}
	if flags.Changed("width") {
		cfg.WindowWidth = width
	}
	if flags.Changed("height") {
		cfg.WindowHeight = height
	}
	if cmd.PersistentFlags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	logger.Init(cfg.LogLevel)
	logger.Log.Info("tilt3d starting", zap.String("logLevel", cfg.LogLevel))

	viewer := engine.NewViewer(cfg, loader.NewSource())
	return viewer.Run(ctx)
}

func runInfo(cmd *cobra.Command, path string) error {
	logger.Init(logLevel)

	var model *renderer.Node
	for ev := range loader.LoadModel(cmd.Context(), loader.NewSource(), path) {
		switch ev.Kind {
		case loader.Failure:
			return ev.Err
		case loader.Success:
			model = ev.Asset
		}
	}
	if model == nil {
		return fmt.Errorf("load %s: cancelled", path)
	}

	nodes, vertices, triangles := 0, 0, 0
	materials := make(map[*renderer.Material]struct{})
	model.Walk(func(n *renderer.Node) {
		nodes++
		for _, m := range n.Meshes {
			vertices += m.VertexCount()
			if len(m.Indices) > 0 {
				triangles += len(m.Indices) / 3
			} else {
				triangles += m.VertexCount() / 3
			}
			materials[m.Material] = struct{}{}
		}
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:     %s\n", path)
	fmt.Fprintf(out, "Nodes:     %d\n", nodes)
	fmt.Fprintf(out, "Meshes:    %d\n", model.MeshCount())
	fmt.Fprintf(out, "Vertices:  %d\n", vertices)
	fmt.Fprintf(out, "Triangles: %d\n", triangles)
	fmt.Fprintf(out, "Materials: %d\n", len(materials))
	return nil
}
