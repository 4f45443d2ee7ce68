package softkin

import "github.com/go-gl/mathgl/mgl32"

// Body is a simulator the world can drive: one Simulate call per display
// frame, substeps handled internally.
type Body interface {
	Simulate()
	SetSolverSubsteps(n int)
	StartGrab(p mgl32.Vec3)
	MoveGrabbed(p mgl32.Vec3)
	EndGrab(v mgl32.Vec3)
}

// World is the host-side fixed-step driver. Step advances every registered
// body by one frame period. It is single-threaded: callers own the world for
// the duration of Step.
type World struct {
	bodies []Body
	paused bool
	frame  uint64
	log    Logger
}

func NewWorld() *World {
	return &World{log: NewNopLogger()}
}

func (w *World) SetLogger(l Logger) {
	if l == nil {
		l = NewNopLogger()
	}
	w.log = l
}

func (w *World) Add(b Body) {
	w.bodies = append(w.bodies, b)
	w.log.Debugf("world: %d bodies", len(w.bodies))
}

func (w *World) Bodies() []Body { return w.bodies }

func (w *World) SetPaused(paused bool) { w.paused = paused }
func (w *World) Paused() bool          { return w.paused }

// Frame is the number of frames stepped since creation.
func (w *World) Frame() uint64 { return w.frame }

// Step advances every body by one display frame. A paused world leaves all
// state untouched.
func (w *World) Step() {
	if w.paused {
		return
	}
	for _, b := range w.bodies {
		b.Simulate()
	}
	w.frame++
}

// SetSolverSubsteps reconfigures every registered body.
func (w *World) SetSolverSubsteps(n int) {
	for _, b := range w.bodies {
		b.SetSolverSubsteps(n)
	}
}
