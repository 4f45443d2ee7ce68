package softkin

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClothConstruction(t *testing.T) {
	c := NewCloth()

	require.Equal(t, clothNumX*clothNumY, c.NumParticles)

	// per-pattern counts over the lattice interior
	stretch := clothNumX*(clothNumY-1) + (clothNumX-1)*clothNumY
	shear := 2 * (clothNumX - 1) * (clothNumY - 1)
	bending := clothNumX*(clothNumY-2) + (clothNumX-2)*clothNumY
	require.Equal(t, stretch+shear+bending, c.numConstraints)

	require.Equal(t, (clothNumX-1)*clothNumY+clothNumX*(clothNumY-1), len(c.EdgeIDs))
	require.Equal(t, 2*(clothNumX-1)*(clothNumY-1), len(c.TriIDs))

	// constraints are generated kind-major: stretch, then shear, then bending
	assert.Equal(t, Stretch, c.constraints[0].kind)
	assert.Equal(t, Shear, c.constraints[stretch].kind)
	assert.Equal(t, Bending, c.constraints[stretch+shear].kind)

	for k := 0; k < c.numConstraints; k++ {
		assert.Greater(t, c.constraints[k].restLen, float32(0))
	}
}

func TestClothResetDeterminism(t *testing.T) {
	c := NewCloth()

	c.Reseed(7)
	c.Reset(true)
	pos := append([]mgl32.Vec3(nil), c.Pos...)
	rest := append([]mgl32.Vec3(nil), c.restPos...)

	c.Reseed(7)
	c.Reset(true)
	require.Equal(t, pos, c.Pos)
	require.Equal(t, rest, c.restPos)
}

func TestClothResetAttach(t *testing.T) {
	c := NewCloth()

	c.Reset(true)
	left := 0*clothNumY + clothNumY - 1
	right := (clothNumX-1)*clothNumY + clothNumY - 1
	assert.Zero(t, c.invMass[left])
	assert.Zero(t, c.invMass[right])

	kinematic := 0
	for i := range c.invMass {
		if c.invMass[i] == 0 {
			kinematic++
		}
	}
	assert.Equal(t, 2, kinematic)

	c.Reset(false)
	for i := range c.invMass {
		assert.Equal(t, float32(1), c.invMass[i])
	}
}

func TestClothSetSolverSubsteps(t *testing.T) {
	c := NewCloth()

	for _, n := range []int{1, 2, 4, 8, 16} {
		c.SetSolverSubsteps(n)
		assert.Equal(t, float32(TimeStep), c.Dt*float32(n))
	}
	for _, n := range []int{3, 10, 40} {
		c.SetSolverSubsteps(n)
		assert.InDelta(t, TimeStep, float64(c.Dt)*float64(n), 1e-9)
		assert.InDelta(t, velLimitMultiplier*clothThickness/c.Dt, c.maxVel, 1e-9)
	}

	assert.Panics(t, func() { c.SetSolverSubsteps(0) })
}

func TestClothKinematicUnmovedBySimulate(t *testing.T) {
	c := NewCloth()
	c.Reset(true)
	left := 0*clothNumY + clothNumY - 1
	right := (clothNumX-1)*clothNumY + clothNumY - 1
	leftPos := c.Pos[left]
	rightPos := c.Pos[right]

	for frame := 0; frame < 30; frame++ {
		c.Simulate()
	}

	require.Equal(t, leftPos, c.Pos[left])
	require.Equal(t, rightPos, c.Pos[right])
}

func TestClothGroundClamp(t *testing.T) {
	c := NewCloth()
	c.Reset(false)
	c.HandleCollisions = false

	// constraint projection runs after the ground clamp within a substep, so
	// particles may dip transiently; they never sink through the plane
	for frame := 0; frame < 60; frame++ {
		c.Simulate()
		for i := range c.Pos {
			if c.invMass[i] == 0 {
				continue
			}
			require.GreaterOrEqual(t, c.Pos[i].Y(), float32(-1e-3))
		}
	}
}

func TestClothVelocityLimit(t *testing.T) {
	c := NewCloth()
	c.Reset(false)
	c.HandleCollisions = false

	for frame := 0; frame < 30; frame++ {
		c.Simulate()
		for i := range c.vel {
			assert.LessOrEqual(t, c.vel[i].Len(), c.maxVel*1.05)
		}
	}
}

func TestClothFallsFlatOntoGround(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario")
	}
	c := NewCloth()
	c.Reset(false)
	c.HandleCollisions = false

	for frame := 0; frame < 300; frame++ {
		c.Simulate()
	}

	for i := range c.Pos {
		require.InDelta(t, 0.5*clothThickness, c.Pos[i].Y(), 1e-5)
	}
}

func TestClothHanging(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario")
	}
	c := NewCloth()
	c.Reset(true)
	left := 0*clothNumY + clothNumY - 1
	right := (clothNumX-1)*clothNumY + clothNumY - 1
	leftPos := c.Pos[left]
	rightPos := c.Pos[right]

	for frame := 0; frame < 600; frame++ {
		c.Simulate()
	}

	require.Equal(t, leftPos, c.Pos[left])
	require.Equal(t, rightPos, c.Pos[right])

	mean := bottomEdgeMeanY(c)
	assert.Less(t, mean, float32(0.2))
	assert.Greater(t, mean, float32(0.5*clothThickness))
}

func TestClothStretchTight(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario")
	}
	c := NewCloth()
	c.Reset(true)
	c.HandleCollisions = false

	for frame := 0; frame < 120; frame++ {
		c.Simulate()
	}

	// with zero stretch compliance the stretch constraints stay tight
	maxErr := float32(0)
	for k := 0; k < c.numConstraints; k++ {
		cons := c.constraints[k]
		if cons.kind != Stretch {
			continue
		}
		length := c.Pos[cons.id0].Sub(c.Pos[cons.id1]).Len()
		err := length - cons.restLen
		if err < 0 {
			err = -err
		}
		if err > maxErr {
			maxErr = err
		}
	}
	assert.LessOrEqual(t, maxErr, float32(1e-3))
}

func TestClothSubstepIndependence(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario")
	}
	run := func(substeps int) float32 {
		c := NewCloth()
		c.HandleCollisions = false
		c.SetSolverSubsteps(substeps)
		c.Reset(true)
		for frame := 0; frame < 600; frame++ {
			c.Simulate()
		}
		return bottomEdgeMeanY(c)
	}

	coarse := run(10)
	fine := run(40)
	diff := coarse - fine
	if diff < 0 {
		diff = -diff
	}
	assert.Less(t, diff/coarse, float32(0.05))
}

func TestClothGrabRoundTrip(t *testing.T) {
	c := NewCloth()
	c.Reset(false)

	c.StartGrab(mgl32.Vec3{0, 0, 0})
	id := c.grab.id
	require.GreaterOrEqual(t, id, 0)
	require.Equal(t, mgl32.Vec3{0, 0, 0}, c.Pos[id])
	require.Zero(t, c.invMass[id])

	c.MoveGrabbed(mgl32.Vec3{1, 0, 0})
	require.Equal(t, mgl32.Vec3{1, 0, 0}, c.Pos[id])

	c.EndGrab(mgl32.Vec3{0, 0, 0})
	require.Equal(t, float32(1), c.invMass[id])
	require.Equal(t, mgl32.Vec3{0, 0, 0}, c.vel[id])
	require.Equal(t, -1, c.grab.id)
}

func TestClothGrabbedUnmovedBySimulate(t *testing.T) {
	c := NewCloth()
	c.Reset(false)
	c.HandleCollisions = false

	c.StartGrab(mgl32.Vec3{0, 1, 0})
	id := c.grab.id
	for frame := 0; frame < 10; frame++ {
		c.Simulate()
	}
	require.Equal(t, mgl32.Vec3{0, 1, 0}, c.Pos[id])
	c.EndGrab(mgl32.Vec3{})
}

func bottomEdgeMeanY(c *Cloth) float32 {
	sum := float32(0)
	for i := 0; i < clothNumX; i++ {
		sum += c.Pos[i*clothNumY].Y()
	}
	return sum / clothNumX
}
