// Package runtime drives the game loop: one tick thread sequencing input
// dispatch, scene update, fixed-step physics and the rendering and audio
// collaborators.
package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/events"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/physics"
	"github.com/lupine-engine/lupine/internal/core/project"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

// Options collects the collaborators and tunables the engine composes.
// Nil collaborators are allowed; the corresponding phase is skipped.
type Options struct {
	Logger   log.Log
	Renderer Renderer
	Audio    Audio
	Scripts  ScriptHost
	FS       FileSystem
}

// Engine owns the active scene, the physics bridge and the tick loop.
// All methods are tick-thread only unless noted.
type Engine struct {
	logger log.Log
	bus    *events.Bus
	bridge *physics.Bridge

	renderer Renderer
	audio    Audio
	scripts  ScriptHost
	fs       FileSystem

	proj    *project.Project
	current *scene.Scene
	pending *scene.Scene

	// QueueInput may be called from other goroutines; the queue is
	// drained at the top of each tick.
	inputMu sync.Mutex
	input   []scene.InputEvent

	camera   *scene.Node3D
	listener *scene.Node3D

	lastTick time.Time
}

func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Provide()
	}
	e := &Engine{
		logger:   logger,
		bus:      events.NewBus(),
		bridge:   physics.NewBridge(logger),
		renderer: opts.Renderer,
		audio:    opts.Audio,
		scripts:  opts.Scripts,
		fs:       opts.FS,
	}
	scene.RegisterBuiltins()
	physics.RegisterComponents(e.bridge)
	return e
}

func (e *Engine) Bus() *events.Bus          { return e.bus }
func (e *Engine) Physics() *physics.Bridge  { return e.bridge }
func (e *Engine) Scene() *scene.Scene       { return e.current }
func (e *Engine) Project() *project.Project { return e.proj }

// SetCameraNode selects the node whose global transform feeds the
// renderer camera each frame.
func (e *Engine) SetCameraNode(n *scene.Node3D)   { e.camera = n }
func (e *Engine) SetListenerNode(n *scene.Node3D) { e.listener = n }

// RegisterScriptComponents exposes script-bound component types to the
// scene loader under their tags. Construction delegates to the script
// host; a tag the host no longer knows degrades to a placeholder.
func (e *Engine) RegisterScriptComponents(tags ...string) {
	if e.scripts == nil {
		return
	}
	for _, tag := range tags {
		tag := tag
		scene.RegisterComponent(tag, "Script", func() scene.Component {
			if c, ok := e.scripts.NewComponent(tag); ok {
				return c
			}
			e.logger.Warn("script host cannot build component", log.String("tag", tag))
			return scene.NewPlaceholder(tag, nil)
		})
	}
}

// LoadProject reads the project descriptor through the file system
// collaborator and applies engine-level settings.
func (e *Engine) LoadProject(path string) error {
	if e.fs == nil {
		return errors.New("no file system collaborator")
	}
	data, err := e.fs.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	proj, err := project.Unmarshal(data)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	e.proj = proj

	if step := proj.GetSettingFloat("physics/fixed_step", 0); step > 0 {
		e.bridge.SetFixedStep(float64(step))
	}
	gy := proj.GetSettingFloat("physics/gravity_2d_y", -9.8)
	e.bridge.SetGravity2D(mathx.V2(0, float64(gy)))
	e.bridge.SetGravity3D(mathx.V3(0, float64(proj.GetSettingFloat("physics/gravity_3d_y", -9.8)), 0))

	e.logger.Info("project loaded",
		log.String("name", proj.Name),
		log.String("main_scene", proj.MainScene))
	return nil
}

// LoadScene parses a scene file and queues it as the next active scene.
func (e *Engine) LoadScene(path string) error {
	if e.fs == nil {
		return errors.New("no file system collaborator")
	}
	data, err := e.fs.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	s, err := scene.Load(data, e.logger)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	s.SetPath(path)
	e.SwitchScene(s)
	return nil
}

// SwitchScene queues a scene switch. The current scene is destroyed and
// the next activated at the top of the following tick, so components
// never observe both scenes live at once.
func (e *Engine) SwitchScene(next *scene.Scene) {
	e.pending = next
}

// QueueInput enqueues an input sample for the next tick. Safe to call
// from other goroutines.
func (e *Engine) QueueInput(ev scene.InputEvent) {
	e.inputMu.Lock()
	e.input = append(e.input, ev)
	e.inputMu.Unlock()
}

// Tick runs one frame: scene switch, input dispatch, component updates,
// fixed-step physics (with body sync and collision callbacks), then the
// renderer and audio collaborators pull final transforms.
func (e *Engine) Tick(dt float64) {
	e.applySceneSwitch()
	if e.current == nil {
		return
	}

	e.inputMu.Lock()
	queued := e.input
	e.input = nil
	e.inputMu.Unlock()
	for _, ev := range queued {
		e.current.DispatchInput(ev)
	}

	e.current.Update(dt)
	e.bridge.Update(dt)

	e.render()
	e.updateAudio()
}

func (e *Engine) applySceneSwitch() {
	if e.pending == nil {
		return
	}
	if e.current != nil {
		e.current.Deactivate()
		e.publish(events.TypeSceneDeactivated, e.current.Name())
		e.camera = nil
		e.listener = nil
	}
	e.current = e.pending
	e.pending = nil
	e.current.Activate()
	e.publish(events.TypeSceneActivated, e.current.Name())
}

func (e *Engine) publish(typ string, data any) {
	if err := e.bus.Publish(events.New(typ, "engine", data)); err != nil {
		e.logger.Warn("signal handler failed", log.String("type", typ), log.Error(err))
	}
}

func (e *Engine) render() {
	if e.renderer == nil || e.current == nil || e.current.Root() == nil {
		return
	}
	e.renderer.BeginFrame()
	if e.camera != nil {
		e.renderer.SetCamera(e.camera.GlobalTransform())
	}
	e.drawTree(e.current.Root())
	e.renderer.EndFrame()
}

func (e *Engine) drawTree(n scene.Node) {
	if !n.Active() {
		return
	}
	e.renderer.DrawNode(n, worldTransform(n))
	for _, child := range n.Children() {
		e.drawTree(child)
	}
}

// worldTransform lifts any node variant into a 3D transform for the
// renderer; 2D nodes live in the z=0 plane with rotation about Z.
func worldTransform(n scene.Node) mathx.Transform3D {
	switch v := n.(type) {
	case *scene.Node3D:
		return v.GlobalTransform()
	case *scene.Node2D:
		t := v.GlobalTransform()
		return mathx.Transform3D{
			Position: mathx.V3(t.Position.X, t.Position.Y, 0),
			Rotation: mathx.QuatFromAxisAngle(mathx.V3(0, 0, 1), t.Rotation),
			Scale:    mathx.V3(t.Scale.X, t.Scale.Y, 1),
		}
	default:
		return mathx.Transform3DIdentity()
	}
}

func (e *Engine) updateAudio() {
	if e.audio == nil || e.listener == nil {
		return
	}
	t := e.listener.GlobalTransform()
	e.audio.SetListener(ListenerPose{Position: t.Position, Orientation: t.Rotation})
}

// Run ticks the engine at the project's target frame rate until the
// context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	fps := int32(60)
	if e.proj != nil {
		fps = e.proj.GetSettingInt("application/target_fps", 60)
	}
	if fps < 1 {
		fps = 60
	}
	interval := time.Second / time.Duration(fps)

	if e.renderer != nil {
		width, height := e.viewportSize()
		if err := e.renderer.Initialize(width, height); err != nil {
			return errors.Wrap(err, "initialize renderer")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	e.lastTick = time.Now()

	for {
		select {
		case <-ctx.Done():
			if e.current != nil {
				e.current.Deactivate()
			}
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(e.lastTick).Seconds()
			e.lastTick = now
			e.Tick(dt)
		}
	}
}

func (e *Engine) viewportSize() (int, int) {
	width, height := 1280, 720
	if e.proj != nil {
		width = int(e.proj.GetSettingInt("window/width", 1280))
		height = int(e.proj.GetSettingInt("window/height", 720))
	}
	return width, height
}
