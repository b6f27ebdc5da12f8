package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/arstudio/internal/app"
	"github.com/philipparndt/arstudio/internal/capture"
	"github.com/philipparndt/arstudio/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	watch      bool
)

var rootCmd = &cobra.Command{
	Use:          "arstudio-raylib [models...]",
	Short:        "Touch-friendly AR studio window",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return run(cfg, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "arstudio.yaml", "configuration file")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload local models when they change")
}

// Window is the raylib frontend state
type Window struct {
	engine  *app.Engine
	preview previewTexture
	hud     hud
}

func run(cfg config.Config, models []string) error {
	engine, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer engine.Close()

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint) // Must be before InitWindow
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), "AR Studio")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	w := &Window{engine: engine}
	w.bindEngine()
	defer w.preview.unload()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopVideo, err := engine.OpenVideo(ctx)
	if err != nil && !errors.Is(err, app.ErrNoVideo) {
		w.hud.notice(fmt.Sprintf("Camera unavailable: %v", err))
	}
	defer stopVideo()

	go func() {
		if err := engine.RunTrigger(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("status source stopped", "err", err)
		}
	}()

	if watch {
		fw, err := engine.EnableWatch(500 * time.Millisecond)
		if err != nil {
			w.hud.notice(fmt.Sprintf("File watching unavailable: %v", err))
		} else {
			defer fw.Close()
		}
	}

	for _, ref := range models {
		engine.Load(ref)
	}

	for !rl.WindowShouldClose() {
		w.handleInput()

		frame := engine.Frame(float64(rl.GetFrameTime()))
		w.preview.update(frame)

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(15, 18, 25, 255))
		w.preview.draw()
		w.hud.draw(engine)
		rl.EndDrawing()
	}
	return nil
}

func (w *Window) bindEngine() {
	w.engine.OnNotice = w.hud.notice
	w.engine.OnCapture = func(photo *capture.Photo, path string) {
		w.hud.notice(fmt.Sprintf("Saved %s", path))
	}
	w.engine.OnHover = func(hit bool) {
		if hit {
			rl.SetMouseCursor(rl.MouseCursorPointingHand)
		} else {
			rl.SetMouseCursor(rl.MouseCursorDefault)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
