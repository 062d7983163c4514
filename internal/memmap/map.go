// Package memmap is the reference Map implementation spec section 4.6
// calls for: a sparse in-memory voxel column store standing in for a real
// voxel generator/serializer. It satisfies game.Map so the engine is
// runnable end to end without a production map file on hand.
package memmap

import "math/rand"

type voxelKey struct{ X, Y, Z int32 }

// Map is a sparse, mutable voxel grid bounded by Width x Height columns and
// MaxZ depth. Only solid voxels are stored; everything else reads as air.
type Map struct {
	Width, Height int32
	MaxZ          int32

	voxels map[voxelKey]uint32
}

// New returns an empty map of the given bounds. Call Generate to populate
// it with deterministic terrain.
func New(width, height, maxZ int32) *Map {
	return &Map{Width: width, Height: height, MaxZ: maxZ, voxels: make(map[voxelKey]uint32)}
}

// Generate fills the map with a flat ground plane plus a handful of
// pillars, deterministic for a given seed — a stand-in for the real voxel
// terrain generator, which is out of scope for this engine.
func (m *Map) Generate(seed int64) {
	m.voxels = make(map[voxelKey]uint32)

	groundZ := m.MaxZ - 1
	for x := int32(0); x < m.Width; x++ {
		for y := int32(0); y < m.Height; y++ {
			m.voxels[voxelKey{x, y, groundZ}] = 0x4A7C3C
		}
	}

	rng := rand.New(rand.NewSource(seed))
	const pillarCount = 24
	for i := 0; i < pillarCount; i++ {
		px := int32(rng.Intn(int(m.Width)))
		py := int32(rng.Intn(int(m.Height)))
		height := int32(4 + rng.Intn(8))
		for dz := int32(1); dz <= height; dz++ {
			m.voxels[voxelKey{px, py, groundZ - dz}] = 0x9C8060
		}
	}
}

// GetColor implements game.Map.
func (m *Map) GetColor(x, y, z int32) (uint32, bool) {
	c, ok := m.voxels[voxelKey{x, y, z}]
	return c, ok
}

// GetZ implements game.Map: the topmost solid z for a column, or MaxZ-1 as
// a safe floor if the column is entirely air (never returns "no ground").
func (m *Map) GetZ(x, y int32) int32 {
	for z := int32(0); z < m.MaxZ; z++ {
		if _, ok := m.voxels[voxelKey{x, y, z}]; ok {
			return z
		}
	}
	return m.MaxZ - 1
}

// GetSolid implements game.Map.
func (m *Map) GetSolid(x, y, z int32) bool {
	_, ok := m.voxels[voxelKey{x, y, z}]
	return ok
}

// SetPoint implements game.Map.
func (m *Map) SetPoint(x, y, z int32, color uint32) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height || z < 0 || z >= m.MaxZ {
		return
	}
	m.voxels[voxelKey{x, y, z}] = color
}

// RemovePoint implements game.Map.
func (m *Map) RemovePoint(x, y, z int32) {
	delete(m.voxels, voxelKey{x, y, z})
}
