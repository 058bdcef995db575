// Package app hosts the particle editor in a GLFW window drawn with WebGPU.
// The particle simulation is supplied by the embedding program through the
// Simulation interface; Launch is the entry point for its main function.
package app

import (
	"fmt"
	"image"
	"io/fs"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/awparticles"
	"github.com/gekko3d/awparticles/core"
	"github.com/gekko3d/awparticles/editor"
	"github.com/gekko3d/awparticles/gpu"
	"github.com/gekko3d/awparticles/spawner"
)

// Simulation advances particles. The editor only hands it the current spawner
// recipe and reads back the layers to draw.
type Simulation interface {
	Update(dt time.Duration, cfg spawner.Config, origin mgl32.Vec3)
	SimulationTime() time.Duration
	Layers() []core.Layer
}

type Options struct {
	Assets      fs.FS // nil uses the built-in shaders
	Dialog      editor.FileDialog
	Logger      awparticles.Logger
	Preferences *editor.PreferenceManager
	ViewHeight  float32
	ClearColor  wgpu.Color
}

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Backend  *gpu.WgpuBackend
	Renderer *gpu.Renderer
	Profiler *gpu.Profiler

	Session *editor.Session
	Sim     Simulation

	opts     Options
	log      awparticles.Logger
	lastOpen string

	LastTime  float64
	TitleTime float64
	DebugTime float64
}

func NewApp(window *glfw.Window, sim Simulation, opts Options) *App {
	log := awparticles.OrNop(opts.Logger)
	if opts.ViewHeight <= 0 {
		opts.ViewHeight = core.DefaultViewHeight
	}
	if opts.ClearColor == (wgpu.Color{}) {
		opts.ClearColor = wgpu.Color{R: 0, G: 0, B: 0, A: 1}
	}
	return &App{
		Window:   window,
		Sim:      sim,
		Session:  editor.NewSession(log),
		Profiler: gpu.NewProfiler(),
		opts:     opts,
		log:      log,
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "ParticleEditorDevice"})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	a.Backend = gpu.NewWgpuBackend(a.Device, a.Config.Format)
	a.Renderer, err = gpu.NewRenderer(a.Backend, a.opts.Assets, image.Pt(width, height),
		gpu.WithLogger(a.log),
		gpu.WithProfiler(a.Profiler),
	)
	if err != nil {
		return err
	}

	if a.opts.Preferences != nil {
		a.log.SetDebug(a.opts.Preferences.Get().Debug || a.log.DebugEnabled())
	}
	a.LastTime = glfw.GetTime()
	a.log.Infof("editor session %s ready (%v)", a.Session.ID, a.Config.Format)
	return nil
}

// BindInput installs the window callbacks.
func (a *App) BindInput() {
	a.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		a.Resize(width, height)
	})
	a.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		a.HandleCommand(CommandForKey(key, mods))
	})
}

// CommandForKey is the editor keymap.
func CommandForKey(key glfw.Key, mods glfw.ModifierKey) editor.Command {
	switch key {
	case glfw.KeyN:
		return editor.CmdNew
	case glfw.KeyS:
		if mods&glfw.ModShift != 0 {
			return editor.CmdSaveAs
		}
		return editor.CmdSave
	case glfw.KeyO:
		return editor.CmdLoad
	case glfw.KeyLeft:
		return editor.CmdMoveLeft
	case glfw.KeyRight:
		return editor.CmdMoveRight
	case glfw.KeyUp:
		return editor.CmdMoveUp
	case glfw.KeyDown:
		return editor.CmdMoveDown
	case glfw.KeyPageUp:
		return editor.CmdMoveFar
	case glfw.KeyPageDown:
		return editor.CmdMoveNear
	case glfw.KeyF3:
		return editor.CmdToggleDebug
	case glfw.KeyEscape:
		return editor.CmdQuit
	}
	return editor.CmdNone
}

func (a *App) HandleCommand(cmd editor.Command) {
	switch cmd {
	case editor.CmdNone:
		return
	case editor.CmdQuit:
		a.Window.SetShouldClose(true)
		return
	case editor.CmdToggleDebug:
		a.log.SetDebug(!a.log.DebugEnabled())
		if a.opts.Preferences != nil {
			debug := a.log.DebugEnabled()
			a.opts.Preferences.Update(func(p *editor.Preferences) { p.Debug = debug })
		}
		return
	}

	path, _, err := a.Session.Execute(cmd, a.opts.Dialog)
	if err != nil {
		a.log.Errorf("%s: %v", cmd, err)
		return
	}
	if cmd == editor.CmdLoad && path != "" {
		a.lastOpen = path
	}
	if a.opts.Preferences != nil && path != "" {
		a.opts.Preferences.Remember(a.Session, a.lastOpen)
	}
}

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	if err := a.Renderer.Resize(image.Pt(w, h)); err != nil {
		a.log.Warnf("resize: %v", err)
	}
	if a.opts.Preferences != nil {
		a.opts.Preferences.Update(func(p *editor.Preferences) {
			p.WindowWidth, p.WindowHeight = w, h
		})
	}
}

// Update advances the simulation unless a file operation stalled the last frame.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := time.Duration((now - a.LastTime) * float64(time.Second))
	a.LastTime = now

	a.Profiler.BeginScope("simulate")
	defer a.Profiler.EndScope("simulate")
	if a.Session.ConsumeDropFrame() {
		a.log.Debugf("dropping %v frame after file operation", dt)
		return
	}
	a.Sim.Update(dt, a.Session.Config, a.Session.Position)
}

func (a *App) Render() {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	if err := a.clear(view); err != nil {
		a.log.Errorf("clear pass failed: %v", err)
		return
	}

	cfg := a.Session.Config
	if err := a.Renderer.SetLifetime(cfg.LifeSpan(), cfg.FadeIn); err != nil {
		a.log.Warnf("particle lifetime: %v", err)
	}
	a.Backend.SetTarget(view)
	vp := core.OrthoViewProjection(int(a.Config.Width), int(a.Config.Height), a.opts.ViewHeight)
	if err := a.Renderer.Render(vp, a.Sim.SimulationTime(), a.Sim.Layers()); err != nil {
		a.log.Errorf("render: %v", err)
	}
	a.Backend.SetTarget(nil)

	a.Surface.Present()
	a.updateTitle()
}

func (a *App) clear(view *wgpu.TextureView) error {
	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: a.opts.ClearColor,
		}},
	})
	if err := pass.End(); err != nil {
		pass.Release()
		return err
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	a.Queue.Submit(cmd)
	return nil
}

func (a *App) updateTitle() {
	now := glfw.GetTime()
	if now-a.TitleTime >= 0.25 {
		a.TitleTime = now
		a.Window.SetTitle(Title(a.Session, a.Sim.Layers()))
	}
	if a.log.DebugEnabled() && now-a.DebugTime >= 1.0 {
		a.DebugTime = now
		a.log.Debugf("\n%s", a.Profiler.String())
	}
}

// Title is the window caption for the session.
func Title(s *editor.Session, layers []core.Layer) string {
	name := "untitled"
	if p := s.SavePath(); p != "" {
		name = p
	}
	return fmt.Sprintf("awparticles - %s - Active particles: %d", name, editor.ActiveParticles(layers))
}

func (a *App) Run() {
	for !a.Window.ShouldClose() {
		glfw.PollEvents()
		a.Update()
		a.Render()
	}
}

// Release frees GPU resources and persists preferences.
func (a *App) Release() {
	if a.Renderer != nil {
		if err := a.Renderer.Destroy(); err != nil {
			a.log.Warnf("destroy renderer: %v", err)
		}
	}
	if a.opts.Preferences != nil {
		if err := a.opts.Preferences.Save(); err != nil {
			a.log.Warnf("%v", err)
		}
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
