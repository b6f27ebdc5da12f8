// Package app holds the Engine: the single object that owns the registry,
// the loaders, input handling and capture, and drives them from a frame
// loop. Frontends construct one Engine and inject their callbacks.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/philipparndt/arstudio/internal/capture"
	"github.com/philipparndt/arstudio/internal/config"
	"github.com/philipparndt/arstudio/internal/gesture"
	"github.com/philipparndt/arstudio/internal/loader"
	"github.com/philipparndt/arstudio/internal/picking"
	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/internal/video"
	"github.com/philipparndt/arstudio/pkg/viewer"
)

// Messages from the status backend that end a countdown
const (
	MessageSaved  = "Saved Locally!"
	MessageFailed = "Capture Failed!"
)

// Options configures an Engine. Only Config is required.
type Options struct {
	Config   config.Config
	Fetcher  loader.Fetcher   // nil uses loader.NewHTTPFetcher
	Renderer capture.Renderer // nil uses viewer.NewRenderer
	Video    video.Source     // nil composites without a camera background
	Logger   *slog.Logger
	Now      func() time.Time
}

// Engine owns all model state. Its methods must be called from one
// goroutine (the frame loop); RequestCapture, RequestReload, SetMessage and
// Notify may be called from any goroutine and are applied on the next
// Update. All callbacks run on the frame loop.
type Engine struct {
	cfg config.Config
	log *slog.Logger
	now func() time.Time

	reg        *registry.Registry
	loader     *loader.Loader
	cam        *viewer.Camera
	picker     *picking.Service
	gestures   *gesture.Controller
	sampler    *gesture.Sampler
	compositor *capture.Compositor

	ctx    context.Context
	cancel context.CancelFunc

	// generation is bumped by Clear; completions of older loads are dropped
	generation uint64
	inflight   map[*Pending]context.CancelFunc
	watch      *Watcher

	mu          sync.Mutex
	completions []completion
	captures    int
	reloads     []string
	notices     []string
	message     string
	lastMessage string

	// OnCapture receives every saved photo and its path
	OnCapture func(photo *capture.Photo, path string)
	// OnNotice receives user-facing problems (load or capture failures,
	// camera unavailable)
	OnNotice func(string)
	// OnMessage receives countdown text changes from the status backend
	OnMessage func(string)
	// OnSelectionChange is called with the new selection, nil when cleared
	OnSelectionChange func(*registry.Entry)
	// OnHover is called when the pointer moves between empty space and a
	// model
	OnHover func(hit bool)
}

type completion struct {
	pending    *Pending
	generation uint64
	reload     registry.ID
	result     loader.Result
}

// New creates an engine from opts
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = viewer.NewRenderer()
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		now:      now,
		inflight: make(map[*Pending]context.CancelFunc),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.reg = registry.New(registry.Options{
		Capacity:         cfg.Capacity(),
		TargetSize:       cfg.TargetSize,
		SpriteTargetSize: cfg.SpriteTargetSize,
		MinScale:         cfg.MinScale,
		MaxScale:         cfg.MaxScale,
		LateralOffset:    cfg.LateralOffset,
		FacingYaw:        cfg.FacingYaw,
		Logger:           log.With("component", "registry"),
	})
	e.loader = loader.New(opts.Fetcher, log.With("component", "loader"))
	e.cam = viewer.NewCamera(cfg.FOV, cfg.CameraDistance, cfg.Width, cfg.Height)
	e.picker = picking.New(e.reg, e.cam)

	e.gestures = gesture.New(e.reg, e.picker, e.cam.ForwardDistance, gesture.Options{
		DragSensitivity:  cfg.DragSensitivity,
		WheelSensitivity: cfg.WheelSensitivity,
		Logger:           log.With("component", "gesture"),
	})
	e.gestures.OnSelect = func(entry *registry.Entry) {
		e.selectionChanged(entry)
	}
	e.gestures.OnHover = func(hit bool) {
		if e.OnHover != nil {
			e.OnHover(hit)
		}
	}
	e.sampler = gesture.NewSampler(e.gestures)

	e.compositor = capture.New(e.reg, renderer, e.cam, opts.Video, log.With("component", "capture"))
	return e, nil
}

// Close cancels every in-flight load
func (e *Engine) Close() {
	e.cancel()
}

// Config returns the active configuration
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Registry exposes the model registry for read access
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// Camera returns the scene camera
func (e *Engine) Camera() *viewer.Camera {
	return e.cam
}

// Gestures returns the input state machine
func (e *Engine) Gestures() *gesture.Controller {
	return e.gestures
}

// Resize changes the render viewport
func (e *Engine) Resize(width, height int) {
	e.cam.SetViewport(width, height)
}

// Load starts loading raw in the background. The returned future resolves
// on the frame loop once the asset has been inserted, or with the load
// error. Registry state only changes when the completion is applied.
func (e *Engine) Load(raw string) *Pending {
	p := newPending(raw)
	ctx, cancel := context.WithCancel(e.ctx)
	e.inflight[p] = cancel
	gen := e.generation

	go func() {
		res := e.loader.Load(ctx, raw)
		e.enqueue(completion{pending: p, generation: gen, result: res})
	}()
	return p
}

// InFlight reports how many loads have not completed yet
func (e *Engine) InFlight() int {
	return len(e.inflight)
}

// Clear removes every entry and cancels loads started before the call.
// Their futures resolve with loader.ErrCancelled and their results are
// discarded.
func (e *Engine) Clear() {
	e.generation++
	for p, cancel := range e.inflight {
		cancel()
		p.resolve(nil, loader.ErrCancelled)
	}
	clear(e.inflight)

	hadSelection := e.reg.Selected() != nil
	e.gestures.Reset()
	e.reg.Clear()
	if hadSelection {
		e.selectionChanged(nil)
	}
}

// Remove deletes one entry
func (e *Engine) Remove(id registry.ID) {
	selected := e.reg.Selected()
	e.reg.Remove(id)
	if selected != nil && selected.ID == id {
		e.gestures.Reset()
		e.selectionChanged(nil)
	}
}

// Select selects id, or clears the selection for registry.NoID
func (e *Engine) Select(id registry.ID) {
	e.reg.Select(id)
	e.selectionChanged(e.reg.Selected())
}

// Selected returns the selected entry, or nil
func (e *Engine) Selected() *registry.Entry {
	return e.reg.Selected()
}

// Mode returns config.ModeAdd or config.ModeReplace
func (e *Engine) Mode() string {
	return e.cfg.Mode
}

// SetMode switches between add and replace mode. The new capacity applies
// to the next insert.
func (e *Engine) SetMode(mode string) error {
	cfg := e.cfg
	cfg.Mode = mode
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.reg.SetCapacity(cfg.Capacity())
	e.log.Debug("mode changed", "mode", mode, "capacity", cfg.Capacity())
	return nil
}

// PointerDown forwards a press to the gesture controller
func (e *Engine) PointerDown(id int, x, y float64) {
	e.gestures.PointerDown(id, x, y)
}

// PointerMove forwards a move to the gesture controller
func (e *Engine) PointerMove(id int, x, y float64) {
	e.gestures.PointerMove(id, x, y)
}

// PointerUp forwards a release to the gesture controller
func (e *Engine) PointerUp(id int) {
	e.gestures.PointerUp(id)
}

// Pointers feeds a polled snapshot of all active pointers
func (e *Engine) Pointers(current []gesture.Pointer) {
	e.sampler.Update(current)
}

// Hover updates the hover cue and reports whether a model is under (x, y)
func (e *Engine) Hover(x, y float64) bool {
	return e.gestures.Hover(x, y)
}

// Wheel scales the selection by a scroll amount
func (e *Engine) Wheel(delta float64) {
	e.gestures.Wheel(delta)
}

// Scale returns the user scale of the selection, 0 when nothing is
// selected
func (e *Engine) Scale() float64 {
	if sel := e.reg.Selected(); sel != nil {
		return sel.Scale()
	}
	return 0
}

// SetScale sets the selection's scale, clamped
func (e *Engine) SetScale(v float64) {
	e.gestures.SetScale(v)
}

// ScaleBy adjusts the selection's scale by delta, clamped
func (e *Engine) ScaleBy(delta float64) {
	e.gestures.ScaleBy(delta)
}

// RotateAbsolute sets the selection's yaw
func (e *Engine) RotateAbsolute(angle float64) {
	e.gestures.RotateAbsolute(angle)
}

// RotateRelative turns the selection around axis
func (e *Engine) RotateRelative(axis gesture.Axis, angle float64) {
	e.gestures.RotateRelative(axis, angle)
}

// SetVideo replaces the camera frame source
func (e *Engine) SetVideo(src video.Source) {
	e.compositor.SetVideo(src)
}

// RequestCapture asks for a capture on the next Update
func (e *Engine) RequestCapture() {
	e.mu.Lock()
	e.captures++
	e.mu.Unlock()
}

// RequestReload asks for every entry loaded from source to be reloaded on
// the next Update
func (e *Engine) RequestReload(source string) {
	e.mu.Lock()
	e.reloads = append(e.reloads, source)
	e.mu.Unlock()
}

// SetMessage sets the countdown text drawn on the preview. The messages
// that end a countdown clear the overlay.
func (e *Engine) SetMessage(msg string) {
	e.mu.Lock()
	e.message = msg
	e.mu.Unlock()
}

// Message returns the overlay text currently drawn on the preview
func (e *Engine) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return overlayText(e.message)
}

func overlayText(msg string) string {
	if msg == MessageSaved || msg == MessageFailed {
		return ""
	}
	return msg
}

// Notify reports a user-facing problem
func (e *Engine) Notify(msg string) {
	e.mu.Lock()
	e.notices = append(e.notices, msg)
	e.mu.Unlock()
}

// Update runs one frame of work: apply finished loads, advance
// animations, then serve capture and reload requests
func (e *Engine) Update(dt float64) {
	e.mu.Lock()
	done := e.completions
	e.completions = nil
	captures := e.captures
	e.captures = 0
	reloads := e.reloads
	e.reloads = nil
	notices := e.notices
	e.notices = nil
	message := e.message
	e.mu.Unlock()

	if e.watch != nil && e.watch.closed.Load() {
		e.watch = nil
	}

	for _, msg := range notices {
		e.notice(msg)
	}
	if message != e.lastMessage {
		e.lastMessage = message
		if e.OnMessage != nil {
			e.OnMessage(message)
		}
	}

	for _, c := range done {
		e.complete(c)
	}

	e.reg.Tick(dt)

	for range captures {
		if _, _, err := e.CaptureAndSave(); err != nil {
			e.log.Error("capture failed", "err", err)
			e.notice("Capture failed")
		}
	}
	for _, source := range reloads {
		e.reload(source)
	}
}

// Run drives Update at the given interval until ctx is done. It is the
// frame loop of headless frontends.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := e.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := e.now()
			e.Update(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Await drives the frame loop until p resolves or ctx ends, for callers
// without a frame loop of their own
func (e *Engine) Await(ctx context.Context, p *Pending) (*registry.Entry, error) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		e.Update(0)
		select {
		case <-p.Done():
			return p.Result()
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Frame runs Update and returns the live preview: mirrored video, the
// scene with selection outlines, and the countdown text
func (e *Engine) Frame(dt float64) *image.RGBA {
	e.Update(dt)
	return e.Preview()
}

// Preview composites the current state without advancing it
func (e *Engine) Preview() *image.RGBA {
	return e.compositor.Compose(capture.Options{Outlines: true, Message: e.Message()})
}

// Capture composites the current state without outlines or overlay text.
// Registry state is left unchanged.
func (e *Engine) Capture() (*capture.Photo, error) {
	return e.compositor.Capture(e.cfg.ProductName, e.now())
}

// CaptureAndSave captures and writes the photo to the capture directory
func (e *Engine) CaptureAndSave() (*capture.Photo, string, error) {
	photo, err := e.Capture()
	if err != nil {
		return nil, "", err
	}
	path, err := photo.Save(e.cfg.CaptureDir)
	if err != nil {
		return nil, "", err
	}
	e.log.Info("capture saved", "path", path)
	if e.OnCapture != nil {
		e.OnCapture(photo, path)
	}
	return photo, path, nil
}

func (e *Engine) enqueue(c completion) {
	e.mu.Lock()
	e.completions = append(e.completions, c)
	e.mu.Unlock()
}

func (e *Engine) complete(c completion) {
	if c.reload != registry.NoID {
		e.completeReload(c)
		return
	}

	if c.generation != e.generation {
		e.log.Debug("discarding load from before clear", "url", c.result.Ref)
		return
	}
	delete(e.inflight, c.pending)

	res := c.result
	if res.Err != nil {
		if !errors.Is(res.Err, loader.ErrCancelled) {
			e.notice(fmt.Sprintf("Failed to load %s", res.Ref))
		}
		c.pending.resolve(nil, res.Err)
		return
	}

	selected := e.reg.Selected()
	entry := e.reg.Insert(res.Asset)
	if selected != nil && e.reg.Get(selected.ID) == nil {
		e.gestures.Reset()
		e.selectionChanged(nil)
	}
	e.log.Info("model loaded", "url", res.Ref, "format", res.Format, "id", entry.ID)
	if e.watch != nil {
		e.watch.add(entry)
	}
	c.pending.resolve(entry, nil)
}

func (e *Engine) reload(source string) {
	for _, entry := range e.reg.Entries() {
		if entry.Source != source {
			continue
		}
		id := entry.ID
		go func() {
			res := e.loader.LoadRef(e.ctx, source)
			e.enqueue(completion{reload: id, result: res})
		}()
	}
}

func (e *Engine) completeReload(c completion) {
	if c.result.Err != nil {
		e.notice(fmt.Sprintf("Failed to reload %s", c.result.Ref))
		return
	}
	if e.reg.Reload(c.reload, c.result.Asset) {
		e.log.Info("model reloaded", "url", c.result.Ref, "id", c.reload)
	}
}

func (e *Engine) notice(msg string) {
	if e.OnNotice != nil {
		e.OnNotice(msg)
	}
}

func (e *Engine) selectionChanged(entry *registry.Entry) {
	if e.OnSelectionChange != nil {
		e.OnSelectionChange(entry)
	}
}
