package softkin

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// TetMesh is the host-supplied tetrahedral asset: vertex positions, tets as
// vertex quadruples, the unique undirected edges as flat pairs, and the
// surface triangles as flat index triples (renderer only, the solver never
// reads them).
type TetMesh struct {
	Vertices         []mgl32.Vec3
	TetIDs           [][4]int
	TetEdgeIDs       []int
	TetSurfaceTriIDs []int
}

// Validate reports the first structural defect, or nil for a well-formed mesh.
func (m TetMesh) Validate() error {
	n := len(m.Vertices)
	if n == 0 {
		return fmt.Errorf("no vertices")
	}
	if len(m.TetIDs) == 0 {
		return fmt.Errorf("no tetrahedra")
	}
	if len(m.TetEdgeIDs)%2 != 0 {
		return fmt.Errorf("edge list length %d is not a multiple of 2", len(m.TetEdgeIDs))
	}
	if len(m.TetSurfaceTriIDs)%3 != 0 {
		return fmt.Errorf("surface triangle list length %d is not a multiple of 3", len(m.TetSurfaceTriIDs))
	}
	for t, tet := range m.TetIDs {
		for _, id := range tet {
			if id < 0 || id >= n {
				return fmt.Errorf("tet %d references vertex %d of %d", t, id, n)
			}
		}
	}
	for e, id := range m.TetEdgeIDs {
		if id < 0 || id >= n {
			return fmt.Errorf("edge entry %d references vertex %d of %d", e, id, n)
		}
	}
	for s, id := range m.TetSurfaceTriIDs {
		if id < 0 || id >= n {
			return fmt.Errorf("surface entry %d references vertex %d of %d", s, id, n)
		}
	}
	return nil
}

// tetMeshFile is the on-disk YAML shape of a tet mesh asset.
type tetMeshFile struct {
	Vertices         [][3]float32 `yaml:"vertices"`
	TetIDs           [][4]int     `yaml:"tet_ids"`
	TetEdgeIDs       []int        `yaml:"tet_edge_ids"`
	TetSurfaceTriIDs []int        `yaml:"tet_surface_tri_ids"`
}

// LoadTetMesh reads a YAML tet mesh asset and validates it.
func LoadTetMesh(filename string) (TetMesh, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return TetMesh{}, fmt.Errorf("tet mesh: %w", err)
	}
	var raw tetMeshFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return TetMesh{}, fmt.Errorf("tet mesh: yaml %w", err)
	}
	mesh := TetMesh{
		Vertices:         make([]mgl32.Vec3, len(raw.Vertices)),
		TetIDs:           raw.TetIDs,
		TetEdgeIDs:       raw.TetEdgeIDs,
		TetSurfaceTriIDs: raw.TetSurfaceTriIDs,
	}
	for i, v := range raw.Vertices {
		mesh.Vertices[i] = mgl32.Vec3{v[0], v[1], v[2]}
	}
	if err := mesh.Validate(); err != nil {
		return TetMesh{}, fmt.Errorf("tet mesh %q: %w", filename, err)
	}
	return mesh, nil
}

// cube corner offsets of the six tets that share the main cell diagonal. All
// six have positive signed volume, and neighboring cells share face diagonals.
var blockCellTets = [6][4][3]int{
	{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}, {1, 1, 1}},
	{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 1, 1}, {0, 0, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 1, 1}},
	{{0, 0, 0}, {1, 0, 1}, {1, 0, 0}, {1, 1, 1}},
}

// MakeTetBlock builds a conforming tetrahedral block of nx*ny*nz cells with
// the given cell size, centered in x and z with its base on the ground plane.
// Each cell is split into six tets around its main diagonal.
func MakeTetBlock(nx, ny, nz int, spacing float32) TetMesh {
	vid := func(i, j, k int) int { return (i*(ny+1)+j)*(nz+1) + k }

	vertices := make([]mgl32.Vec3, (nx+1)*(ny+1)*(nz+1))
	for i := 0; i <= nx; i++ {
		for j := 0; j <= ny; j++ {
			for k := 0; k <= nz; k++ {
				vertices[vid(i, j, k)] = mgl32.Vec3{
					(float32(i) - 0.5*float32(nx)) * spacing,
					float32(j) * spacing,
					(float32(k) - 0.5*float32(nz)) * spacing,
				}
			}
		}
	}

	var tetIDs [][4]int
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				for _, tet := range blockCellTets {
					var ids [4]int
					for v, c := range tet {
						ids[v] = vid(i+c[0], j+c[1], k+c[2])
					}
					tetIDs = append(tetIDs, ids)
				}
			}
		}
	}

	// unique undirected edges, in discovery order
	var edgeIDs []int
	seenEdges := make(map[[2]int]bool)
	for _, tet := range tetIDs {
		for a := 0; a < 4; a++ {
			for b := a + 1; b < 4; b++ {
				key := [2]int{tet[a], tet[b]}
				if key[0] > key[1] {
					key[0], key[1] = key[1], key[0]
				}
				if seenEdges[key] {
					continue
				}
				seenEdges[key] = true
				edgeIDs = append(edgeIDs, tet[a], tet[b])
			}
		}
	}

	// faces appearing in exactly one tet form the surface
	faceCount := make(map[[3]int]int)
	faceKey := func(a, b, c int) [3]int {
		k := [3]int{a, b, c}
		if k[0] > k[1] {
			k[0], k[1] = k[1], k[0]
		}
		if k[1] > k[2] {
			k[1], k[2] = k[2], k[1]
		}
		if k[0] > k[1] {
			k[0], k[1] = k[1], k[0]
		}
		return k
	}
	for _, tet := range tetIDs {
		for _, face := range volIDOrder {
			faceCount[faceKey(tet[face[0]], tet[face[1]], tet[face[2]])]++
		}
	}
	var surfaceTriIDs []int
	for _, tet := range tetIDs {
		for _, face := range volIDOrder {
			a, b, c := tet[face[0]], tet[face[1]], tet[face[2]]
			if faceCount[faceKey(a, b, c)] == 1 {
				surfaceTriIDs = append(surfaceTriIDs, a, b, c)
			}
		}
	}

	return TetMesh{
		Vertices:         vertices,
		TetIDs:           tetIDs,
		TetEdgeIDs:       edgeIDs,
		TetSurfaceTriIDs: surfaceTriIDs,
	}
}

type MeshID string

// MeshServer is a registry of tet mesh assets keyed by generated ids.
type MeshServer struct {
	meshes map[MeshID]TetMesh
}

func NewMeshServer() *MeshServer {
	return &MeshServer{meshes: make(map[MeshID]TetMesh)}
}

func (s *MeshServer) Add(mesh TetMesh) MeshID {
	id := MeshID(uuid.NewString())
	s.meshes[id] = mesh
	return id
}

func (s *MeshServer) Get(id MeshID) (TetMesh, bool) {
	mesh, ok := s.meshes[id]
	return mesh, ok
}

// Load reads a YAML tet mesh asset from disk and registers it.
func (s *MeshServer) Load(filename string) (MeshID, error) {
	mesh, err := LoadTetMesh(filename)
	if err != nil {
		return "", err
	}
	return s.Add(mesh), nil
}
