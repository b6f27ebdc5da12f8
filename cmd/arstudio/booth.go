package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/philipparndt/arstudio/internal/app"
	"github.com/philipparndt/arstudio/internal/capture"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var boothOpts struct {
	status    string
	websocket string
	video     string
	watch     bool
	fps       int
}

var boothCmd = &cobra.Command{
	Use:   "booth [models...]",
	Short: "Run a headless photo booth",
	Long: `Load the given models, attach the camera stream and watch the remote
gesture detector. Every rising edge of its flash flag saves a photo.`,
	RunE: runBooth,
}

func init() {
	rootCmd.AddCommand(boothCmd)
	boothCmd.Flags().StringVar(&boothOpts.status, "status", "", "status endpoint polled for triggers")
	boothCmd.Flags().StringVar(&boothOpts.websocket, "websocket", "", "status WebSocket endpoint")
	boothCmd.Flags().StringVar(&boothOpts.video, "video", "", "MJPEG stream URL")
	boothCmd.Flags().BoolVarP(&boothOpts.watch, "watch", "w", false, "reload local models when they change")
	boothCmd.Flags().IntVar(&boothOpts.fps, "fps", 30, "frame loop rate")
}

func runBooth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if boothOpts.status != "" {
		cfg.StatusURL = boothOpts.status
	}
	if boothOpts.websocket != "" {
		cfg.StatusWebSocket = boothOpts.websocket
	}
	if boothOpts.video != "" {
		cfg.VideoURL = boothOpts.video
	}
	if cfg.StatusURL == "" && cfg.StatusWebSocket == "" {
		return errors.New("no status endpoint configured (use --status or --websocket)")
	}
	if boothOpts.fps < 1 {
		return fmt.Errorf("invalid frame rate %d", boothOpts.fps)
	}

	engine, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer engine.Close()

	engine.OnNotice = func(msg string) {
		fmt.Printf("Notice: %s\n", msg)
	}
	engine.OnMessage = func(msg string) {
		if msg != "" {
			fmt.Printf("Status: %s\n", msg)
		}
	}
	engine.OnCapture = func(photo *capture.Photo, path string) {
		fmt.Printf("Saved %s\n", path)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closeVideo, err := engine.OpenVideo(ctx)
	if err != nil && !errors.Is(err, app.ErrNoVideo) {
		fmt.Printf("Warning: camera unavailable: %v\n", err)
	}
	defer closeVideo()

	if boothOpts.watch {
		w, err := engine.EnableWatch(500 * time.Millisecond)
		if err != nil {
			fmt.Printf("Warning: failed to set up file watching: %v\n", err)
		} else {
			defer w.Close()
		}
	}

	for _, ref := range args {
		entry, err := engine.Await(ctx, engine.Load(ref))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", ref, err)
		}
		fmt.Printf("Loaded %s (%s)\n", entry.Name, entry.Kind)
	}

	fmt.Println("Waiting for triggers, press Ctrl+C to stop")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.RunTrigger(ctx)
	})
	g.Go(func() error {
		return engine.Run(ctx, time.Second/time.Duration(boothOpts.fps))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
