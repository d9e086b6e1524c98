package scene

import "github.com/lupine-engine/lupine/internal/core/vars"

// RegisterBuiltins installs the engine's own component types into the
// process-wide registry. Must run before any scene loads; the runtime does
// this during initialization.
func RegisterBuiltins() {
	RegisterComponent("Timer", "Utility", func() Component { return NewTimer() })
}

// Timer counts down while its node is ticked and invokes a callback when
// the duration elapses. One-shot by default; repeating when `one_shot` is
// cleared.
type Timer struct {
	BaseComponent

	running   bool
	elapsed   float64
	OnTimeout func()
}

func NewTimer() *Timer {
	t := &Timer{BaseComponent: NewBase("Timer", "Utility")}
	t.Vars().Declare("duration", "Seconds until the timer fires", vars.Float(1))
	t.Vars().Declare("one_shot", "Stop after the first timeout", vars.Bool(true))
	t.Vars().Declare("autostart", "Start counting on ready", vars.Bool(false))
	return t
}

func (t *Timer) OnReady() {
	if v, ok := t.Vars().Get("autostart"); ok && v.Bool {
		t.Start()
	}
}

func (t *Timer) OnUpdate(dt float64) {
	if !t.running {
		return
	}
	t.elapsed += dt
	duration := float64(1)
	if v, ok := t.Vars().Get("duration"); ok {
		duration = float64(v.Float)
	}
	if t.elapsed < duration {
		return
	}
	oneShot := true
	if v, ok := t.Vars().Get("one_shot"); ok {
		oneShot = v.Bool
	}
	if oneShot {
		t.running = false
	} else {
		t.elapsed -= duration
	}
	if t.OnTimeout != nil {
		t.OnTimeout()
	}
}

func (t *Timer) Start() {
	t.running = true
	t.elapsed = 0
}

func (t *Timer) Stop() {
	t.running = false
}

func (t *Timer) Running() bool    { return t.running }
func (t *Timer) Elapsed() float64 { return t.elapsed }
