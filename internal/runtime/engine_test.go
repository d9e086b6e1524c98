package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/bundle"
	"github.com/lupine-engine/lupine/internal/core/events"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/project"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

func testLogger() log.Log { return log.New(log.LevelError) }

// recorder collects the phases a tick runs through, shared between the
// test doubles and tracer components.
type recorder struct {
	calls []string
}

func (r *recorder) mark(s string) { r.calls = append(r.calls, s) }

type fakeRenderer struct {
	rec        *recorder
	lastCamera mathx.Transform3D
	cameraSet  bool
}

func (f *fakeRenderer) Initialize(int, int) error { return nil }
func (f *fakeRenderer) BeginFrame()               { f.rec.mark("render.begin") }
func (f *fakeRenderer) EndFrame()                 { f.rec.mark("render.end") }

func (f *fakeRenderer) SetCamera(view mathx.Transform3D) {
	f.lastCamera = view
	f.cameraSet = true
}

func (f *fakeRenderer) DrawNode(node scene.Node, _ mathx.Transform3D) {
	f.rec.mark("render.draw " + node.Name())
}

type fakeAudio struct {
	poses []ListenerPose
}

func (f *fakeAudio) SetListener(pose ListenerPose) { f.poses = append(f.poses, pose) }
func (f *fakeAudio) PlayClip(string) error         { return nil }
func (f *fakeAudio) Stop(string)                   {}

type tracer struct {
	scene.BaseComponent
	rec   *recorder
	label string
}

func newTracer(rec *recorder, label string) *tracer {
	return &tracer{BaseComponent: scene.NewBase("Tracer", "Test"), rec: rec, label: label}
}

func (p *tracer) OnReady()                 { p.rec.mark(p.label + ".ready") }
func (p *tracer) OnInput(scene.InputEvent) { p.rec.mark(p.label + ".input") }
func (p *tracer) OnUpdate(float64)         { p.rec.mark(p.label + ".update") }
func (p *tracer) OnDestroy()               { p.rec.mark(p.label + ".destroy") }

func buildScene(t *testing.T, name string, rec *recorder, label string) *scene.Scene {
	t.Helper()
	s := scene.New(name, testLogger())
	node := scene.NewNode2D("Player")
	require.NoError(t, s.Root().AddChild(node))
	require.NoError(t, node.AddComponent(newTracer(rec, label)))
	return s
}

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}

func TestTickRunsPhasesInOrder(t *testing.T) {
	rec := &recorder{}
	renderer := &fakeRenderer{rec: rec}
	e := New(Options{Logger: testLogger(), Renderer: renderer})

	e.SwitchScene(buildScene(t, "level", rec, "p"))
	e.QueueInput(scene.InputEvent{Device: "keyboard", Code: 32, Pressed: true})
	e.Tick(1.0 / 60.0)

	ready := indexOf(rec.calls, "p.ready")
	input := indexOf(rec.calls, "p.input")
	update := indexOf(rec.calls, "p.update")
	begin := indexOf(rec.calls, "render.begin")
	end := indexOf(rec.calls, "render.end")

	require.GreaterOrEqual(t, ready, 0)
	require.GreaterOrEqual(t, input, 0)
	require.GreaterOrEqual(t, update, 0)
	require.GreaterOrEqual(t, begin, 0)

	assert.Less(t, ready, input)
	assert.Less(t, input, update)
	assert.Less(t, update, begin)
	assert.Less(t, begin, end)
	assert.Contains(t, rec.calls, "render.draw Player")
}

func TestQueuedInputIsDrainedOnce(t *testing.T) {
	rec := &recorder{}
	e := New(Options{Logger: testLogger()})

	e.SwitchScene(buildScene(t, "level", rec, "p"))
	e.QueueInput(scene.InputEvent{Code: 1})
	e.QueueInput(scene.InputEvent{Code: 2})

	e.Tick(0.016)
	e.Tick(0.016)

	var inputs int
	for _, c := range rec.calls {
		if c == "p.input" {
			inputs++
		}
	}
	assert.Equal(t, 2, inputs)
}

func TestSceneSwitchDestroysOldBeforeReadyingNew(t *testing.T) {
	rec := &recorder{}
	e := New(Options{Logger: testLogger()})

	var signals []string
	e.Bus().Subscribe(events.TypeSceneActivated, func(ev events.Event) error {
		signals = append(signals, "activated "+ev.Data.(string))
		return nil
	})
	e.Bus().Subscribe(events.TypeSceneDeactivated, func(ev events.Event) error {
		signals = append(signals, "deactivated "+ev.Data.(string))
		return nil
	})

	e.SwitchScene(buildScene(t, "menu", rec, "menu"))
	e.Tick(0.016)
	assert.Equal(t, "menu", e.Scene().Name())

	e.SwitchScene(buildScene(t, "level", rec, "level"))
	e.Tick(0.016)
	assert.Equal(t, "level", e.Scene().Name())

	destroy := indexOf(rec.calls, "menu.destroy")
	ready := indexOf(rec.calls, "level.ready")
	require.GreaterOrEqual(t, destroy, 0)
	require.GreaterOrEqual(t, ready, 0)
	assert.Less(t, destroy, ready)

	assert.Equal(t, []string{"activated menu", "deactivated menu", "activated level"}, signals)
}

func TestSceneSwitchClearsCameraAndListener(t *testing.T) {
	rec := &recorder{}
	renderer := &fakeRenderer{rec: rec}
	audio := &fakeAudio{}
	e := New(Options{Logger: testLogger(), Renderer: renderer, Audio: audio})

	s := buildScene(t, "level", rec, "p")
	cam := scene.NewNode3D("Camera")
	cam.SetPosition(mathx.V3(0, 5, 10))
	require.NoError(t, s.Root().AddChild(cam))

	e.SwitchScene(s)
	e.Tick(0.016)
	e.SetCameraNode(cam)
	e.SetListenerNode(cam)
	e.Tick(0.016)

	assert.True(t, renderer.cameraSet)
	assert.Equal(t, mathx.V3(0, 5, 10), renderer.lastCamera.Position)
	require.NotEmpty(t, audio.poses)
	assert.Equal(t, mathx.V3(0, 5, 10), audio.poses[len(audio.poses)-1].Position)

	// The next scene starts without the previous scene's camera.
	renderer.cameraSet = false
	poses := len(audio.poses)
	e.SwitchScene(buildScene(t, "next", rec, "q"))
	e.Tick(0.016)
	assert.False(t, renderer.cameraSet)
	assert.Len(t, audio.poses, poses)
}

func TestLoadProjectAppliesPhysicsSettings(t *testing.T) {
	dir := t.TempDir()

	p := project.New("demo")
	p.SetSettingFloat("physics/fixed_step", 0.02)
	require.NoError(t, p.SaveFile(filepath.Join(dir, "project.lupine")))

	e := New(Options{Logger: testLogger(), FS: NewDirFS(dir)})
	require.NoError(t, e.LoadProject("project.lupine"))

	require.NotNil(t, e.Project())
	assert.Equal(t, "demo", e.Project().Name)
	assert.InDelta(t, 0.02, e.Physics().FixedStep(), 1e-6)
}

func TestLoadProjectWithoutFS(t *testing.T) {
	e := New(Options{Logger: testLogger()})
	assert.Error(t, e.LoadProject("project.lupine"))
	assert.Error(t, e.LoadScene("scenes/main.scene"))
}

func TestLoadSceneQueuesSwitch(t *testing.T) {
	dir := t.TempDir()

	scene.RegisterBuiltins()
	src := scene.New("main", testLogger())
	require.NoError(t, src.Root().AddChild(scene.NewNode2D("Hero")))
	data, err := scene.Save(src)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scenes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenes", "main.scene"), data, 0o644))

	e := New(Options{Logger: testLogger(), FS: NewDirFS(dir)})
	require.NoError(t, e.LoadScene("scenes/main.scene"))

	// The switch lands at the top of the next tick.
	assert.Nil(t, e.Scene())
	e.Tick(0.016)
	require.NotNil(t, e.Scene())
	assert.Equal(t, "main", e.Scene().Name())
	assert.Equal(t, "scenes/main.scene", e.Scene().Path())
	assert.NotNil(t, e.Scene().FindNodeByName("Hero"))

	assert.Error(t, e.LoadScene("scenes/missing.scene"))
}

func TestDirFS(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("a: 1"), 0o644))

	fs := NewDirFS(dir)

	full, err := fs.Resolve("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), full)

	data, err := fs.ReadFile("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, []byte("a: 1"), data)

	_, err = fs.Resolve("missing.yaml")
	assert.Error(t, err)
	_, err = fs.ReadFile("missing.yaml")
	assert.Error(t, err)
}

func TestBundleFS(t *testing.T) {
	w := bundle.NewWriter(testLogger())
	require.NoError(t, w.AddData("scenes/main.scene", []byte("name: main")))
	path := filepath.Join(t.TempDir(), "game.bundle")
	require.NoError(t, w.CreateBundle(path))

	r, err := bundle.Open(path)
	require.NoError(t, err)
	defer r.Close()

	fs := NewBundleFS(r)

	resolved, err := fs.Resolve("scenes/main.scene")
	require.NoError(t, err)
	assert.Equal(t, "scenes/main.scene", resolved)

	data, err := fs.ReadFile("scenes/main.scene")
	require.NoError(t, err)
	assert.Equal(t, []byte("name: main"), data)

	_, err = fs.Resolve("scenes/other.scene")
	assert.Error(t, err)
}
