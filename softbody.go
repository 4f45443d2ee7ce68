package softkin

import (
	"github.com/cpmech/gosl/chk"
	"github.com/go-gl/mathgl/mgl32"
)

// Opposite-face vertex orderings for the volume gradient of each tet vertex.
// The order is fixed: changing it flips gradient signs.
var volIDOrder = [4][3]int{{1, 3, 2}, {0, 2, 3}, {0, 3, 1}, {0, 1, 2}}

// SoftBody simulates a tetrahedral mesh with XPBD edge-length and
// volume-preservation constraints over a sticky ground plane at y = 0.
type SoftBody struct {
	NumParticles int
	NumTets      int
	numSubsteps  int
	Dt           float32
	invDt        float32

	TetIDs  [][4]int
	EdgeIDs []int

	Pos      []mgl32.Vec3
	prev     []mgl32.Vec3
	vel      []mgl32.Vec3
	invMass  []float32
	restVol  []float32
	edgeLens []float32

	grab grabber

	EdgeCompliance float32
	VolCompliance  float32

	// source mesh, kept for Reset and the surface triangle query
	mesh TetMesh
	log  Logger
}

// NewSoftBody builds a simulator over the given mesh. Each tet distributes a
// quarter of its rest volume's mass to its vertices; rest volumes and rest
// edge lengths are captured once from the initial geometry.
func NewSoftBody(mesh TetMesh, numSubsteps int, edgeCompliance, volCompliance float32) *SoftBody {
	if numSubsteps < 1 {
		chk.Panic("substep count must be positive, got %d", numSubsteps)
	}
	if err := mesh.Validate(); err != nil {
		chk.Panic("invalid tet mesh: %v", err)
	}

	numParticles := len(mesh.Vertices)
	numTets := len(mesh.TetIDs)
	numEdges := len(mesh.TetEdgeIDs)
	dt := float32(TimeStep) / float32(numSubsteps)

	b := &SoftBody{
		NumParticles: numParticles,
		NumTets:      numTets,
		numSubsteps:  numSubsteps,
		Dt:           dt,
		invDt:        1 / dt,

		TetIDs:  append([][4]int(nil), mesh.TetIDs...),
		EdgeIDs: append([]int(nil), mesh.TetEdgeIDs...),

		Pos:      append([]mgl32.Vec3(nil), mesh.Vertices...),
		prev:     append([]mgl32.Vec3(nil), mesh.Vertices...),
		vel:      make([]mgl32.Vec3, numParticles),
		invMass:  make([]float32, numParticles),
		restVol:  make([]float32, numTets),
		edgeLens: make([]float32, numEdges/2),

		grab: newGrabber(),

		EdgeCompliance: edgeCompliance,
		VolCompliance:  volCompliance,

		mesh: mesh,
		log:  NewNopLogger(),
	}
	b.init()
	return b
}

// NewDefaultSoftBody builds a soft body over the procedural tet block, for
// hosts that have no external asset at hand.
func NewDefaultSoftBody(numSubsteps int, edgeCompliance, volCompliance float32) *SoftBody {
	return NewSoftBody(MakeTetBlock(4, 4, 4, 0.1), numSubsteps, edgeCompliance, volCompliance)
}

func (b *SoftBody) SetLogger(l Logger) {
	if l == nil {
		l = NewNopLogger()
	}
	b.log = l
}

// SurfaceTriIDs returns a copy of the surface triangle list for the renderer.
func (b *SoftBody) SurfaceTriIDs() []int {
	return append([]int(nil), b.mesh.TetSurfaceTriIDs...)
}

func (b *SoftBody) SetSolverSubsteps(n int) {
	if n < 1 {
		chk.Panic("substep count must be positive, got %d", n)
	}
	b.numSubsteps = n
	b.Dt = float32(TimeStep) / float32(n)
	b.invDt = 1 / b.Dt
}

func (b *SoftBody) init() {
	for t := 0; t < b.NumTets; t++ {
		vol := b.tetVolume(t)
		b.restVol[t] = vol
		invMass := float32(0)
		if vol > 0 {
			invMass = 1 / (vol / 4)
		}
		tet := b.TetIDs[t]
		b.invMass[tet[0]] += invMass
		b.invMass[tet[1]] += invMass
		b.invMass[tet[2]] += invMass
		b.invMass[tet[3]] += invMass
	}
	for e := range b.edgeLens {
		id0 := b.EdgeIDs[2*e]
		id1 := b.EdgeIDs[2*e+1]
		b.edgeLens[e] = b.Pos[id0].Sub(b.Pos[id1]).Len()
	}
	b.log.Debugf("soft body: %d particles, %d tets, %d edges",
		b.NumParticles, b.NumTets, len(b.edgeLens))
}

// Reset restores the mesh rest positions and zeroes velocities. Rest volumes,
// edge lengths and masses are untouched.
func (b *SoftBody) Reset() {
	copy(b.Pos, b.mesh.Vertices)
	copy(b.prev, b.mesh.Vertices)
	for i := range b.vel {
		b.vel[i] = mgl32.Vec3{}
	}
}

func (b *SoftBody) Simulate() {
	for n := 0; n < b.numSubsteps; n++ {
		b.preSolve()
		b.solve()
		b.postSolve()
	}
}

func (b *SoftBody) preSolve() {
	for i := 0; i < b.NumParticles; i++ {
		if b.invMass[i] == 0 {
			continue
		}
		b.vel[i] = b.vel[i].Add(gravity.Mul(b.Dt))
		b.prev[i] = b.Pos[i]
		b.Pos[i] = b.Pos[i].Add(b.vel[i].Mul(b.Dt))
		if b.Pos[i].Y() < 0 {
			b.Pos[i] = b.prev[i]
			b.Pos[i][1] = 0
		}
	}
}

func (b *SoftBody) solve() {
	b.solveEdges()
	b.solveVolumes()
}

func (b *SoftBody) postSolve() {
	for i := 0; i < b.NumParticles; i++ {
		if b.invMass[i] == 0 {
			continue
		}
		b.vel[i] = b.Pos[i].Sub(b.prev[i]).Mul(b.invDt)
	}
}

func (b *SoftBody) solveEdges() {
	alpha := b.EdgeCompliance * b.invDt * b.invDt
	for e := range b.edgeLens {
		id0 := b.EdgeIDs[2*e]
		id1 := b.EdgeIDs[2*e+1]
		w0 := b.invMass[id0]
		w1 := b.invMass[id1]
		w := w0 + w1
		if w == 0 {
			continue
		}

		grad := b.Pos[id0].Sub(b.Pos[id1])
		length := grad.Len()
		if length == 0 {
			continue
		}
		grad = grad.Mul(1 / length)
		cErr := length - b.edgeLens[e]
		s := -cErr / (w + alpha)
		b.Pos[id0] = b.Pos[id0].Add(grad.Mul(s * w0))
		b.Pos[id1] = b.Pos[id1].Sub(grad.Mul(s * w1))
	}
}

func (b *SoftBody) solveVolumes() {
	alpha := b.VolCompliance * b.invDt * b.invDt
	for t := 0; t < b.NumTets; t++ {
		tet := b.TetIDs[t]
		var grads [4]mgl32.Vec3
		w := float32(0)
		for j := 0; j < 4; j++ {
			order := volIDOrder[j]
			id0 := tet[order[0]]
			id1 := tet[order[1]]
			id2 := tet[order[2]]
			e0 := b.Pos[id1].Sub(b.Pos[id0])
			e1 := b.Pos[id2].Sub(b.Pos[id0])
			grads[j] = e0.Cross(e1).Mul(1.0 / 6.0)
			w += b.invMass[tet[j]] * grads[j].LenSqr()
		}
		if w == 0 {
			continue
		}

		cErr := b.tetVolume(t) - b.restVol[t]
		s := -cErr / (w + alpha)
		for j := 0; j < 4; j++ {
			id := tet[j]
			b.Pos[id] = b.Pos[id].Add(grads[j].Mul(s * b.invMass[id]))
		}
	}
}

// tetVolume is the signed volume of tet t from its current positions.
func (b *SoftBody) tetVolume(t int) float32 {
	tet := b.TetIDs[t]
	e0 := b.Pos[tet[1]].Sub(b.Pos[tet[0]])
	e1 := b.Pos[tet[2]].Sub(b.Pos[tet[0]])
	e2 := b.Pos[tet[3]].Sub(b.Pos[tet[0]])
	return e0.Cross(e1).Dot(e2) / 6
}

// Squash drops every particle to y = 0.5, seeding a collapsed state for the
// solver to recover from.
func (b *SoftBody) Squash() {
	for i := 0; i < b.NumParticles; i++ {
		b.Pos[i][1] = 0.5
	}
}

// Translate moves the whole body, preserving velocities.
func (b *SoftBody) Translate(displacement mgl32.Vec3) {
	for i := 0; i < b.NumParticles; i++ {
		b.Pos[i] = b.Pos[i].Add(displacement)
		b.prev[i] = b.prev[i].Add(displacement)
	}
}

func (b *SoftBody) StartGrab(p mgl32.Vec3) {
	b.grab.start(p, b.Pos, b.invMass)
}

func (b *SoftBody) MoveGrabbed(p mgl32.Vec3) {
	b.grab.move(p, b.Pos)
}

func (b *SoftBody) EndGrab(v mgl32.Vec3) {
	b.grab.end(v, b.invMass, b.vel)
}
