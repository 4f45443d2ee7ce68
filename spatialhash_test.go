package softkin

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(n int, seed int64) []mgl32.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl32.Vec3, n)
	for i := range points {
		points[i] = mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
	}
	return points
}

func adjacencySet(h *SpatialHash, i int) map[int]bool {
	set := make(map[int]bool)
	for _, j := range h.AdjIDs[h.FirstAdjID[i]:h.FirstAdjID[i+1]] {
		set[j] = true
	}
	return set
}

func TestSpatialHashNoFalseNegatives(t *testing.T) {
	points := randomPoints(300, 42)
	maxDist := float32(0.08)

	h := NewSpatialHash(0.05, len(points))
	h.Create(points)
	h.QueryAll(points, maxDist)

	for i := range points {
		adj := adjacencySet(h, i)
		require.False(t, adj[i], "point %d lists itself", i)
		for j := range points {
			if j == i {
				continue
			}
			if points[i].Sub(points[j]).Len() <= maxDist {
				require.True(t, adj[j], "pair (%d,%d) within range but missing", i, j)
			}
		}
	}
}

func TestSpatialHashCSRShape(t *testing.T) {
	points := randomPoints(200, 3)

	h := NewSpatialHash(0.1, len(points))
	h.Create(points)
	h.QueryAll(points, 0.1)

	require.Equal(t, len(points)+1, len(h.FirstAdjID))
	require.Zero(t, h.FirstAdjID[0])
	for i := 0; i < len(points); i++ {
		assert.LessOrEqual(t, h.FirstAdjID[i], h.FirstAdjID[i+1])
	}
	require.Equal(t, len(h.AdjIDs), h.FirstAdjID[len(points)])
}

func TestSpatialHashRebuild(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {0.02, 0, 0}, {5, 5, 5}}

	h := NewSpatialHash(0.05, len(points))
	h.Create(points)
	h.QueryAll(points, 0.05)
	require.True(t, adjacencySet(h, 0)[1])
	require.False(t, adjacencySet(h, 0)[2])

	// move the far point next to the first and rebuild
	points[2] = mgl32.Vec3{0, 0.02, 0}
	h.Create(points)
	h.QueryAll(points, 0.05)
	require.True(t, adjacencySet(h, 0)[2])
}

func TestSpatialHashCapacity(t *testing.T) {
	h := NewSpatialHash(0.1, 2)
	assert.Panics(t, func() {
		h.Create(make([]mgl32.Vec3, 3))
	})
}
