package softkin

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBody struct {
	simulated int
	substeps  int
}

func (r *recordingBody) Simulate()                { r.simulated++ }
func (r *recordingBody) SetSolverSubsteps(n int)  { r.substeps = n }
func (r *recordingBody) StartGrab(p mgl32.Vec3)   {}
func (r *recordingBody) MoveGrabbed(p mgl32.Vec3) {}
func (r *recordingBody) EndGrab(v mgl32.Vec3)     {}

func TestWorldStep(t *testing.T) {
	w := NewWorld()
	a := &recordingBody{}
	b := &recordingBody{}
	w.Add(a)
	w.Add(b)

	w.Step()
	w.Step()
	w.Step()

	assert.Equal(t, 3, a.simulated)
	assert.Equal(t, 3, b.simulated)
	assert.Equal(t, uint64(3), w.Frame())
}

func TestWorldPaused(t *testing.T) {
	w := NewWorld()
	body := &recordingBody{}
	w.Add(body)

	w.SetPaused(true)
	w.Step()
	assert.Zero(t, body.simulated)
	assert.Zero(t, w.Frame())

	w.SetPaused(false)
	w.Step()
	assert.Equal(t, 1, body.simulated)
	assert.Equal(t, uint64(1), w.Frame())
}

func TestWorldSetSolverSubsteps(t *testing.T) {
	w := NewWorld()
	body := &recordingBody{}
	w.Add(body)

	w.SetSolverSubsteps(25)
	assert.Equal(t, 25, body.substeps)
}

func TestWorldDrivesSimulators(t *testing.T) {
	w := NewWorld()
	cloth := NewCloth()
	cloth.HandleCollisions = false
	cloth.Reset(true)
	soft := NewDefaultSoftBody(DefaultNumSolverSubsteps, 0, 0)
	w.Add(cloth)
	w.Add(soft)

	before := cloth.Pos[5*clothNumY]
	for i := 0; i < 5; i++ {
		w.Step()
	}
	require.NotEqual(t, before, cloth.Pos[5*clothNumY])
	require.Equal(t, uint64(5), w.Frame())
}
