package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/philipparndt/arstudio/internal/app"
	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/spf13/cobra"
)

var captureOpts struct {
	out     string
	video   string
	scale   float64
	rotate  float64
	timeout time.Duration
}

var captureCmd = &cobra.Command{
	Use:   "capture [models...]",
	Short: "Render models over the camera frame and save a photo",
	Long: `Load the given models in order (add mode keeps up to max_models of them),
composite them over the configured camera frame and write a single PNG.
The last model loaded is selected and receives --scale and --rotate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOpts.out, "out", "o", "", "output directory (default from config)")
	captureCmd.Flags().StringVar(&captureOpts.video, "video", "", "still image used as the camera frame")
	captureCmd.Flags().Float64Var(&captureOpts.scale, "scale", 1, "user scale of the last model")
	captureCmd.Flags().Float64Var(&captureOpts.rotate, "rotate", 0, "yaw of the last model in degrees")
	captureCmd.Flags().DurationVar(&captureOpts.timeout, "timeout", time.Minute, "load timeout")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if captureOpts.out != "" {
		cfg.CaptureDir = captureOpts.out
	}
	if captureOpts.video != "" {
		cfg.VideoFile = captureOpts.video
		cfg.VideoURL = ""
	}

	engine, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer engine.Close()
	engine.OnNotice = func(msg string) {
		fmt.Printf("Notice: %s\n", msg)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), captureOpts.timeout)
	defer cancel()

	stop, err := engine.OpenVideo(ctx)
	if err != nil && !errors.Is(err, app.ErrNoVideo) {
		fmt.Printf("Warning: camera frame unavailable: %v\n", err)
	}
	defer stop()
	if cfg.VideoURL != "" {
		// Give the stream a moment to deliver its first frame
		time.Sleep(time.Second)
	}

	for _, ref := range args {
		entry, err := engine.Await(ctx, engine.Load(ref))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", ref, err)
		}
		fmt.Printf("Loaded %s (%s)\n", entry.Name, entry.Kind)
		engine.Select(entry.ID)
	}

	engine.SetScale(captureOpts.scale)
	engine.RotateAbsolute(captureOpts.rotate * math.Pi / 180)
	engine.Select(registry.NoID)

	_, path, err := engine.CaptureAndSave()
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}
