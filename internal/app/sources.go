package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/philipparndt/arstudio/internal/loader"
	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/internal/trigger"
	"github.com/philipparndt/arstudio/internal/video"
	"github.com/philipparndt/arstudio/pkg/watcher"
)

// ErrNoVideo is returned by OpenVideo when no camera source is configured
var ErrNoVideo = errors.New("no video source configured")

// OpenVideo attaches the configured camera source: the MJPEG stream when
// VideoURL is set, else the still image in VideoFile. Stream failures are
// reported through OnNotice; the engine keeps running without a
// background. The returned function stops the source.
func (e *Engine) OpenVideo(ctx context.Context) (stop func(), err error) {
	switch {
	case e.cfg.VideoURL != "":
		src := video.NewMJPEGSource(e.cfg.VideoURL, e.log.With("component", "video"))
		src.OnError = func(err error) {
			e.Notify(fmt.Sprintf("Camera unavailable: %v", err))
		}
		src.Start(ctx)
		e.SetVideo(src)
		return src.Close, nil

	case e.cfg.VideoFile != "":
		src, err := video.LoadStill(e.cfg.VideoFile)
		if err != nil {
			e.log.Error("camera unavailable", "file", e.cfg.VideoFile, "err", err)
			e.Notify("Camera unavailable")
			return func() {}, err
		}
		e.SetVideo(src)
		return func() {}, nil
	}
	return func() {}, ErrNoVideo
}

// RunTrigger connects the configured status backend and blocks until ctx
// is done. Every rising edge of the flash flag requests a capture; message
// changes update the preview overlay. The WebSocket endpoint wins over
// polling when both are configured.
func (e *Engine) RunTrigger(ctx context.Context) error {
	sink := trigger.Sink{
		OnMessage: e.SetMessage,
		OnTrigger: e.RequestCapture,
	}
	log := e.log.With("component", "trigger")

	switch {
	case e.cfg.StatusWebSocket != "":
		return trigger.NewWebSocketSource(e.cfg.StatusWebSocket, sink, log).Run(ctx)
	case e.cfg.StatusURL != "":
		return trigger.NewPoller(e.cfg.StatusURL, e.cfg.PollInterval, sink, log).Run(ctx)
	}
	return nil
}

// Watcher reloads local models when their files change
type Watcher struct {
	engine *Engine
	fw     *watcher.FileWatcher
	closed atomic.Bool
}

// EnableWatch must be called from the frame loop goroutine. It starts watching the source of every local model inserted from
// now on, and of those already present. A change reloads each entry
// sourced from that file in place.
func (e *Engine) EnableWatch(debounce time.Duration) (*Watcher, error) {
	fw, err := watcher.NewFileWatcher(debounce, e.log.With("component", "watcher"))
	if err != nil {
		return nil, err
	}
	fw.Start()

	w := &Watcher{engine: e, fw: fw}
	e.watch = w
	for _, entry := range e.reg.Entries() {
		w.add(entry)
	}
	return w, nil
}

func (w *Watcher) add(entry *registry.Entry) {
	if w.closed.Load() {
		return
	}
	path, ok := loader.LocalPath(entry.Source)
	if !ok {
		return
	}
	source := entry.Source
	if err := w.fw.Watch(path, func(string) { w.engine.RequestReload(source) }); err != nil {
		w.engine.log.Warn("cannot watch model", "path", path, "err", err)
	}
}

// Close stops watching. It is safe to call from any goroutine; the engine
// drops the watcher on its next Update.
func (w *Watcher) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	return w.fw.Close()
}
