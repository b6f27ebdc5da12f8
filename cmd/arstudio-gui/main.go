package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/arstudio/internal/app"
	"github.com/philipparndt/arstudio/internal/capture"
	"github.com/philipparndt/arstudio/internal/config"
	"github.com/philipparndt/arstudio/internal/gesture"
	"github.com/philipparndt/arstudio/internal/loader"
	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/spf13/cobra"
)

const rotateStep = math.Pi / 12

var (
	configPath string
	watch      bool
)

var rootCmd = &cobra.Command{
	Use:          "arstudio-gui [models...]",
	Short:        "Desktop AR studio",
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

// Studio is the desktop UI chrome around one engine
type Studio struct {
	engine *app.Engine
	window fyne.Window
	view   *SceneView

	scale   *widget.Slider
	syncing bool
	status  *widget.Label
	message *widget.Label
}

func run(cfg config.Config, models []string) error {
	engine, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer engine.Close()

	a := fyneapp.New()
	w := a.NewWindow("AR Studio")
	s := &Studio{engine: engine, window: w, view: NewSceneView(engine)}
	s.setupUI()
	s.bindEngine()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopVideo, err := engine.OpenVideo(ctx)
	if err != nil && !errors.Is(err, app.ErrNoVideo) {
		s.setStatus(fmt.Sprintf("Camera unavailable: %v", err))
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
			s.setStatus(fmt.Sprintf("File watching unavailable: %v", err))
		} else {
			// stop the frame loop first
			defer func() {
				cancel()
				fw.Close()
			}()
		}
	}

	for _, ref := range models {
		s.load(ref)
	}

	go s.frameLoop(ctx)

	w.Resize(fyne.NewSize(1280, 800))
	w.ShowAndRun()
	return nil
}

func (s *Studio) setupUI() {
	cfg := s.engine.Config()

	openButton := widget.NewButton("Open Model...", s.showFileDialog)
	urlButton := widget.NewButton("Load URL...", s.showURLDialog)
	clearButton := widget.NewButton("Clear All", s.engine.Clear)
	removeButton := widget.NewButton("Remove Selected", func() {
		if sel := s.engine.Selected(); sel != nil {
			s.engine.Remove(sel.ID)
		}
	})

	mode := widget.NewRadioGroup([]string{config.ModeAdd, config.ModeReplace}, func(value string) {
		if value == "" {
			return
		}
		if err := s.engine.SetMode(value); err != nil {
			dialog.ShowError(err, s.window)
		}
	})
	mode.Horizontal = true
	mode.SetSelected(cfg.Mode)

	s.scale = widget.NewSlider(cfg.MinScale, cfg.MaxScale)
	s.scale.Step = 0.01
	s.scale.OnChanged = func(v float64) {
		if !s.syncing {
			s.engine.SetScale(v)
		}
	}
	s.scale.Disable()

	rotateLeft := widget.NewButton("Rotate Left", func() {
		s.engine.RotateRelative(gesture.AxisY, -rotateStep)
	})
	rotateRight := widget.NewButton("Rotate Right", func() {
		s.engine.RotateRelative(gesture.AxisY, rotateStep)
	})
	tiltUp := widget.NewButton("Tilt", func() {
		s.engine.RotateRelative(gesture.AxisX, rotateStep)
	})
	faceFront := widget.NewButton("Face Front", func() {
		s.engine.RotateAbsolute(0)
	})

	captureButton := widget.NewButton("Capture", s.engine.RequestCapture)
	captureButton.Importance = widget.HighImportance

	s.status = widget.NewLabel("")
	s.status.Wrapping = fyne.TextWrapWord
	s.message = widget.NewLabel("")
	s.message.TextStyle = fyne.TextStyle{Bold: true}

	instructions := widget.NewLabel(
		"Instructions:\n" +
			"• Click a model to select it\n" +
			"• Drag to move the selection\n" +
			"• Scroll to scale the selection\n" +
			"• Drop files onto the window to load them",
	)
	instructions.Wrapping = fyne.TextWrapWord

	panel := container.NewVBox(
		widget.NewLabel("Models:"),
		widget.NewSeparator(),
		openButton,
		urlButton,
		removeButton,
		clearButton,
		widget.NewLabel("Mode:"),
		mode,
		widget.NewSeparator(),
		widget.NewLabel("Scale:"),
		s.scale,
		widget.NewLabel("Rotation:"),
		container.NewGridWithColumns(2, rotateLeft, rotateRight, tiltUp, faceFront),
		widget.NewSeparator(),
		captureButton,
		s.message,
		s.status,
		widget.NewSeparator(),
		instructions,
	)

	scroll := container.NewVScroll(panel)
	scroll.SetMinSize(fyne.NewSize(280, 0))

	s.window.SetContent(container.NewBorder(nil, nil, nil, scroll, s.view))
	s.window.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		for _, uri := range uris {
			s.load(uri.Path())
		}
	})
}

func (s *Studio) bindEngine() {
	s.engine.OnSelectionChange = func(sel *registry.Entry) {
		s.syncScale()
	}
	s.engine.OnNotice = s.setStatus
	s.engine.OnMessage = func(msg string) {
		s.message.SetText(msg)
	}
	s.engine.OnCapture = func(photo *capture.Photo, path string) {
		s.setStatus(fmt.Sprintf("Saved %s", path))
	}
}

// syncScale reflects the selection's scale in the slider
func (s *Studio) syncScale() {
	sel := s.engine.Selected()
	if sel == nil {
		s.scale.Disable()
		return
	}
	s.syncing = true
	s.scale.SetValue(sel.Scale())
	s.syncing = false
	s.scale.Enable()
}

func (s *Studio) setStatus(msg string) {
	s.status.SetText(msg)
}

func (s *Studio) load(ref string) {
	s.setStatus(fmt.Sprintf("Loading %s...", ref))
	p := s.engine.Load(ref)
	go func() {
		<-p.Done()
		fyne.Do(func() {
			entry, err := p.Result()
			switch {
			case err == nil:
				s.setStatus(fmt.Sprintf("Loaded %s", entry.Name))
			case errors.Is(err, loader.ErrCancelled):
			default:
				s.setStatus(fmt.Sprintf("Failed to load %s: %v", ref, err))
			}
		})
	}()
}

func (s *Studio) showFileDialog() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()
		s.load(reader.URI().Path())
	}, s.window)
}

func (s *Studio) showURLDialog() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("https://example.com/model.glb")
	dialog.ShowForm("Load URL", "Load", "Cancel", []*widget.FormItem{
		widget.NewFormItem("URL", entry),
	}, func(ok bool) {
		if ok && entry.Text != "" {
			s.load(entry.Text)
		}
	}, s.window)
}

// frameLoop drives the engine on the UI thread
func (s *Studio) frameLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			fyne.DoAndWait(func() {
				s.view.Show(s.engine.Frame(dt))
				if sel := s.engine.Selected(); sel != nil && !s.scale.Disabled() && s.scale.Value != sel.Scale() {
					s.syncScale()
				}
			})
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
