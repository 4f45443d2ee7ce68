package softkin

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/go-gl/mathgl/mgl32"
)

// SpatialHash is the broad phase for cloth self-collision: a dense uniform
// grid hashed into a fixed table. Create buckets the points by cell, QueryAll
// then builds a CSR adjacency over all points. Hash collisions can surface
// extra candidates; QueryAll drops those farther than maxDist with an exact
// distance check. Points genuinely within maxDist are never missed.
type SpatialHash struct {
	spacing     float32
	tableSize   int
	cellStart   []int
	cellEntries []int
	queryIDs    []int

	// CSR adjacency filled by QueryAll: AdjIDs[FirstAdjID[i]:FirstAdjID[i+1]]
	// holds the neighbors of point i.
	FirstAdjID []int
	AdjIDs     []int
}

func NewSpatialHash(spacing float32, maxPoints int) *SpatialHash {
	tableSize := 2 * maxPoints
	return &SpatialHash{
		spacing:     spacing,
		tableSize:   tableSize,
		cellStart:   make([]int, tableSize+1),
		cellEntries: make([]int, maxPoints),
		queryIDs:    make([]int, 0, maxPoints),
		FirstAdjID:  make([]int, maxPoints+1),
		AdjIDs:      make([]int, 0, 10*maxPoints),
	}
}

func (h *SpatialHash) hashCoords(xi, yi, zi int) int {
	// large primes for mixing
	v := (xi * 73856093) ^ (yi * 19349663) ^ (zi * 83492791)
	if v < 0 {
		v = -v
	}
	return v % h.tableSize
}

func (h *SpatialHash) intCoord(c float32) int {
	return int(math.Floor(float64(c / h.spacing)))
}

func (h *SpatialHash) hashPos(p mgl32.Vec3) int {
	return h.hashCoords(h.intCoord(p.X()), h.intCoord(p.Y()), h.intCoord(p.Z()))
}

// Create rebuilds the table over the given positions. Counting sort into the
// fixed table: count per cell, partial sums, then fill back-to-front.
func (h *SpatialHash) Create(points []mgl32.Vec3) {
	if len(points) > len(h.cellEntries) {
		chk.Panic("spatial hash built for %d points, got %d", len(h.cellEntries), len(points))
	}
	for i := range h.cellStart {
		h.cellStart[i] = 0
	}
	for i := range points {
		h.cellStart[h.hashPos(points[i])]++
	}
	start := 0
	for i := 0; i < h.tableSize; i++ {
		start += h.cellStart[i]
		h.cellStart[i] = start
	}
	h.cellStart[h.tableSize] = start
	for i := range points {
		cell := h.hashPos(points[i])
		h.cellStart[cell]--
		h.cellEntries[h.cellStart[cell]] = i
	}
}

// query collects the candidate ids in all cells overlapping the axis-aligned
// box of half extent maxDist around point i.
func (h *SpatialHash) query(points []mgl32.Vec3, i int, maxDist float32) {
	p := points[i]
	x0 := h.intCoord(p.X() - maxDist)
	y0 := h.intCoord(p.Y() - maxDist)
	z0 := h.intCoord(p.Z() - maxDist)
	x1 := h.intCoord(p.X() + maxDist)
	y1 := h.intCoord(p.Y() + maxDist)
	z1 := h.intCoord(p.Z() + maxDist)

	h.queryIDs = h.queryIDs[:0]
	for xi := x0; xi <= x1; xi++ {
		for yi := y0; yi <= y1; yi++ {
			for zi := z0; zi <= z1; zi++ {
				cell := h.hashCoords(xi, yi, zi)
				for k := h.cellStart[cell]; k < h.cellStart[cell+1]; k++ {
					h.queryIDs = append(h.queryIDs, h.cellEntries[k])
				}
			}
		}
	}
}

// QueryAll fills the CSR adjacency with, for every point, all other points
// within maxDist of it.
func (h *SpatialHash) QueryAll(points []mgl32.Vec3, maxDist float32) {
	num := 0
	maxDist2 := maxDist * maxDist
	h.AdjIDs = h.AdjIDs[:0]
	for i := range points {
		h.FirstAdjID[i] = num
		h.query(points, i, maxDist)
		for _, j := range h.queryIDs {
			if j == i {
				continue
			}
			d2 := points[i].Sub(points[j]).LenSqr()
			if d2 > maxDist2 {
				continue
			}
			h.AdjIDs = append(h.AdjIDs, j)
			num++
		}
	}
	h.FirstAdjID[len(points)] = num
}
