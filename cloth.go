package softkin

import (
	"math"
	"math/rand"

	"github.com/cpmech/gosl/chk"
	"github.com/go-gl/mathgl/mgl32"
)

// Frame period and solver defaults shared by both simulators.
const (
	TimeStep                 = 1.0 / 60.0
	DefaultNumSolverSubsteps = 10
	DefaultBendingCompliance = 1.0
	DefaultStretchCompliance = 0.0
	DefaultShearCompliance   = 0.0001
)

const (
	velLimitMultiplier = 0.2
	clothSpacing       = 0.01
	clothJitter        = 0.001 * clothSpacing
	clothThickness     = 0.01
	clothNumX          = 30
	clothNumY          = 200

	numClothConstraintsPerParticle = 6

	clothRandSeed = 1

	// Future hook: nonzero values blend colliding pairs toward their average
	// displacement.
	selfCollisionFriction = 0.0
)

var gravity = mgl32.Vec3{0, -10, 0}

type ConstraintKind int

const (
	Stretch ConstraintKind = iota
	Shear
	Bending
)

type clothConstraint struct {
	id0, id1 int
	kind     ConstraintKind
	restLen  float32
}

// Cloth is a regular lattice of particles in the XY plane with stretch, shear
// and bending distance constraints, simulated with substepped XPBD. Lattice
// index (i,j) maps to particle id i*clothNumY+j. Self-collision runs against a
// spatial hash rebuilt once per frame over the frame's worst-case travel.
type Cloth struct {
	NumParticles int
	numSubsteps  int
	Dt           float32
	invDt        float32
	maxVel       float32

	EdgeIDs [][2]int
	TriIDs  [][3]int

	Pos     []mgl32.Vec3
	prev    []mgl32.Vec3
	restPos []mgl32.Vec3
	vel     []mgl32.Vec3
	invMass []float32

	thickness        float32
	HandleCollisions bool
	hash             *SpatialHash

	grab grabber

	numConstraints int
	constraints    []clothConstraint

	StretchCompliance float32
	ShearCompliance   float32
	BendingCompliance float32

	rng *rand.Rand
	log Logger
}

func NewCloth() *Cloth {
	numParticles := clothNumX * clothNumY

	var edgeIDs [][2]int
	var triIDs [][3]int
	for i := 0; i < clothNumX; i++ {
		for j := 0; j < clothNumY; j++ {
			id := i*clothNumY + j
			if i < clothNumX-1 && j < clothNumY-1 {
				triIDs = append(triIDs, [3]int{id + 1, id, id + 1 + clothNumY})
				triIDs = append(triIDs, [3]int{id + 1 + clothNumY, id, id + clothNumY})
			}
			if i < clothNumX-1 {
				edgeIDs = append(edgeIDs, [2]int{id, id + clothNumY})
			}
			if j < clothNumY-1 {
				edgeIDs = append(edgeIDs, [2]int{id, id + 1})
			}
		}
	}

	dt := float32(TimeStep) / DefaultNumSolverSubsteps
	c := &Cloth{
		NumParticles: numParticles,
		numSubsteps:  DefaultNumSolverSubsteps,
		Dt:           dt,
		invDt:        1 / dt,
		maxVel:       velLimitMultiplier * clothThickness / dt,

		EdgeIDs: edgeIDs,
		TriIDs:  triIDs,

		Pos:     make([]mgl32.Vec3, numParticles),
		prev:    make([]mgl32.Vec3, numParticles),
		restPos: make([]mgl32.Vec3, numParticles),
		vel:     make([]mgl32.Vec3, numParticles),
		invMass: make([]float32, numParticles),

		thickness:        clothThickness,
		HandleCollisions: true,
		hash:             NewSpatialHash(clothSpacing, numParticles),

		grab: newGrabber(),

		constraints: make([]clothConstraint, numParticles*numClothConstraintsPerParticle),

		StretchCompliance: DefaultStretchCompliance,
		ShearCompliance:   DefaultShearCompliance,
		BendingCompliance: DefaultBendingCompliance,

		rng: rand.New(rand.NewSource(clothRandSeed)),
		log: NewNopLogger(),
	}
	c.init()
	return c
}

func (c *Cloth) SetLogger(l Logger) {
	if l == nil {
		l = NewNopLogger()
	}
	c.log = l
}

// Reseed replaces the jitter RNG. Two resets from the same seed produce
// identical particle states.
func (c *Cloth) Reseed(seed int64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// Reset re-seeds the lattice with small jitter and zero velocities. Topology,
// constraints and rest lengths are untouched. With attach, the two top corners
// are made kinematic.
func (c *Cloth) Reset(attach bool) {
	for i := 0; i < clothNumX; i++ {
		for j := 0; j < clothNumY; j++ {
			id := i*clothNumY + j
			c.Pos[id] = mgl32.Vec3{
				-0.5*clothNumX*clothSpacing + float32(i)*clothSpacing,
				0.2 + float32(j)*clothSpacing,
				0,
			}
			c.invMass[id] = 1
			if attach && j == clothNumY-1 && (i == 0 || i == clothNumX-1) {
				c.invMass[id] = 0
			}
		}
	}

	for i := range c.Pos {
		c.Pos[i][0] += -clothJitter * 2 * clothJitter * c.rng.Float32()
		c.Pos[i][1] += -clothJitter * 2 * clothJitter * c.rng.Float32()
		c.Pos[i][2] += -clothJitter * 2 * clothJitter * c.rng.Float32()
	}

	copy(c.restPos, c.Pos)
	for i := range c.vel {
		c.vel[i] = mgl32.Vec3{}
	}
}

// SetSolverSubsteps splits the fixed frame period into n substeps. Compliance
// is dt-normalized in the solve, so no constraint data is invalidated.
func (c *Cloth) SetSolverSubsteps(n int) {
	if n < 1 {
		chk.Panic("substep count must be positive, got %d", n)
	}
	c.numSubsteps = n
	c.Dt = float32(TimeStep) / float32(n)
	c.invDt = 1 / c.Dt
	c.maxVel = velLimitMultiplier * clothThickness / c.Dt
}

func (c *Cloth) init() {
	c.Reset(false)

	patterns := []struct {
		kind    ConstraintKind
		offsets [4]int
	}{
		{Stretch, [4]int{0, 0, 0, 1}},
		{Stretch, [4]int{0, 0, 1, 0}},
		{Shear, [4]int{0, 0, 1, 1}},
		{Shear, [4]int{0, 1, 1, 0}},
		{Bending, [4]int{0, 0, 0, 2}},
		{Bending, [4]int{0, 0, 2, 0}},
	}
	chk.IntAssert(len(patterns), numClothConstraintsPerParticle)

	c.numConstraints = 0
	for _, p := range patterns {
		for i := 0; i < clothNumX; i++ {
			for j := 0; j < clothNumY; j++ {
				i0, j0 := i+p.offsets[0], j+p.offsets[1]
				i1, j1 := i+p.offsets[2], j+p.offsets[3]
				if i0 < clothNumX && j0 < clothNumY && i1 < clothNumX && j1 < clothNumY {
					id0 := i0*clothNumY + j0
					id1 := i1*clothNumY + j1
					c.constraints[c.numConstraints] = clothConstraint{
						id0:     id0,
						id1:     id1,
						kind:    p.kind,
						restLen: c.Pos[id0].Sub(c.Pos[id1]).Len(),
					}
					c.numConstraints++
				}
			}
		}
	}

	c.log.Debugf("cloth: %d particles, %d constraints, %d edges, %d tris",
		c.NumParticles, c.numConstraints, len(c.EdgeIDs), len(c.TriIDs))
}

func (c *Cloth) compliance(kind ConstraintKind) float32 {
	switch kind {
	case Stretch:
		return c.StretchCompliance
	case Shear:
		return c.ShearCompliance
	default:
		return c.BendingCompliance
	}
}

// Simulate advances one display frame. The broad phase is built once over the
// frame's worst-case travel and reused by every substep.
func (c *Cloth) Simulate() {
	if c.HandleCollisions {
		c.hash.Create(c.Pos)
		maxDist := c.maxVel * c.Dt * float32(c.numSubsteps)
		c.hash.QueryAll(c.Pos, maxDist)
	}

	for n := 0; n < c.numSubsteps; n++ {
		// integrate
		for i := 0; i < c.NumParticles; i++ {
			if c.invMass[i] == 0 {
				continue
			}
			c.vel[i] = c.vel[i].Add(gravity.Mul(c.Dt))
			if v := c.vel[i].Len(); v > c.maxVel {
				c.vel[i] = c.vel[i].Mul(c.maxVel / v)
			}
			c.prev[i] = c.Pos[i]
			c.Pos[i] = c.Pos[i].Add(c.vel[i].Mul(c.Dt))
		}

		// solve
		c.solveGroundCollisions()
		c.solveConstraints()
		if c.HandleCollisions {
			c.solveCollisions()
		}

		// update velocities
		for i := 0; i < c.NumParticles; i++ {
			if c.invMass[i] == 0 {
				continue
			}
			c.vel[i] = c.Pos[i].Sub(c.prev[i]).Mul(c.invDt)
		}
	}
}

// solveConstraints runs one Gauss-Seidel sweep in generation order: stretch,
// then shear, then bending. Later constraints see earlier corrections.
func (c *Cloth) solveConstraints() {
	for k := 0; k < c.numConstraints; k++ {
		cons := &c.constraints[k]
		w0 := c.invMass[cons.id0]
		w1 := c.invMass[cons.id1]
		w := w0 + w1
		if w == 0 {
			continue
		}

		grad := c.Pos[cons.id0].Sub(c.Pos[cons.id1])
		length := grad.Len()
		if length == 0 {
			continue
		}
		grad = grad.Mul(1 / length)
		cErr := length - cons.restLen
		alpha := c.compliance(cons.kind) * c.invDt * c.invDt
		s := -cErr / (w + alpha)
		c.Pos[cons.id0] = c.Pos[cons.id0].Add(grad.Mul(s * w0))
		c.Pos[cons.id1] = c.Pos[cons.id1].Sub(grad.Mul(s * w1))
	}
}

// solveGroundCollisions sticks particles that dipped under the ground plane
// back onto it, discarding the whole substep displacement.
func (c *Cloth) solveGroundCollisions() {
	for i := 0; i < c.NumParticles; i++ {
		if c.invMass[i] == 0 {
			continue
		}
		if c.Pos[i].Y() < 0.5*c.thickness {
			c.Pos[i] = c.prev[i]
			c.Pos[i][1] = 0.5 * c.thickness
		}
	}
}

func (c *Cloth) solveCollisions() {
	thickness2 := c.thickness * c.thickness
	for i := 0; i < c.NumParticles; i++ {
		if c.invMass[i] == 0 {
			continue
		}
		first := c.hash.FirstAdjID[i]
		last := c.hash.FirstAdjID[i+1]
		for k := first; k < last; k++ {
			j := c.hash.AdjIDs[k]
			if c.invMass[j] == 0 {
				continue
			}

			d := c.Pos[j].Sub(c.Pos[i])
			dist2 := d.LenSqr()
			if dist2 > thickness2 || dist2 == 0 {
				continue
			}
			// restDist is a plain distance compared against squared
			// quantities below; the tuning depends on this exact test.
			restDist := c.restPos[i].Sub(c.restPos[j]).Len()
			if dist2 > restDist {
				continue
			}
			minDist := c.thickness
			if restDist < thickness2 {
				minDist = float32(math.Sqrt(float64(restDist)))
			}

			// position correction, split evenly between the pair
			dist := float32(math.Sqrt(float64(dist2)))
			d = d.Mul((minDist - dist) / dist)
			c.Pos[i] = c.Pos[i].Sub(d.Mul(0.5))
			c.Pos[j] = c.Pos[j].Add(d.Mul(0.5))

			// friction: blend each particle's substep displacement toward
			// the pair average
			di := c.Pos[i].Sub(c.prev[i])
			dj := c.Pos[j].Sub(c.prev[j])
			avg := di.Add(dj).Mul(0.5)
			c.Pos[i] = c.Pos[i].Add(avg.Sub(di).Mul(selfCollisionFriction))
			c.Pos[j] = c.Pos[j].Add(avg.Sub(dj).Mul(selfCollisionFriction))
		}
	}
}

func (c *Cloth) StartGrab(p mgl32.Vec3) {
	c.grab.start(p, c.Pos, c.invMass)
}

func (c *Cloth) MoveGrabbed(p mgl32.Vec3) {
	c.grab.move(p, c.Pos)
}

func (c *Cloth) EndGrab(v mgl32.Vec3) {
	c.grab.end(v, c.invMass, c.vel)
}
