package runtime

import (
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

// Renderer is the rendering collaborator the engine drives once per
// frame. Implementations live outside the core.
type Renderer interface {
	Initialize(width, height int) error
	BeginFrame()
	SetCamera(view mathx.Transform3D)
	DrawNode(node scene.Node, world mathx.Transform3D)
	EndFrame()
}

// ListenerPose is the audio listener transform pulled at the end of a
// tick.
type ListenerPose struct {
	Position    mathx.Vec3
	Orientation mathx.Quat
}

// Audio is the audio collaborator.
type Audio interface {
	SetListener(pose ListenerPose)
	PlayClip(name string) error
	Stop(name string)
}

// ScriptHost constructs script-bound components that look identical to
// native components from the scene's perspective.
type ScriptHost interface {
	NewComponent(typeTag string) (scene.Component, bool)
}

// FileSystem resolves and reads project-relative paths. The default
// implementation reads from an asset bundle; editors substitute a loose
// directory tree.
type FileSystem interface {
	Resolve(path string) (string, error)
	ReadFile(path string) ([]byte, error)
}
