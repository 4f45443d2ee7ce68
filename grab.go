package softkin

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// grabber is the single-slot grab shared by both simulators. Grabbing pins a
// particle by zeroing its inverse mass, so the solver treats it as a moving
// boundary condition while the host drags it around.
type grabber struct {
	id      int
	invMass float32
}

func newGrabber() grabber {
	return grabber{id: -1}
}

// start picks the particle nearest to p, saves its inverse mass, pins it and
// teleports it to p.
func (g *grabber) start(p mgl32.Vec3, pos []mgl32.Vec3, invMass []float32) {
	g.id = -1
	minD2 := float32(math.MaxFloat32)
	for i := range pos {
		d2 := p.Sub(pos[i]).LenSqr()
		if d2 < minD2 {
			minD2 = d2
			g.id = i
		}
	}
	if g.id < 0 {
		return
	}
	g.invMass = invMass[g.id]
	invMass[g.id] = 0
	pos[g.id] = p
}

func (g *grabber) move(p mgl32.Vec3, pos []mgl32.Vec3) {
	if g.id < 0 {
		return
	}
	pos[g.id] = p
}

// end restores the saved inverse mass, hands the particle the given velocity
// and clears the slot.
func (g *grabber) end(v mgl32.Vec3, invMass []float32, vel []mgl32.Vec3) {
	if g.id >= 0 {
		invMass[g.id] = g.invMass
		vel[g.id] = v
	}
	g.id = -1
}
