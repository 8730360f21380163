package memworld

import (
	"crypto/sha256"
	"encoding/binary"
)

const chunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is one 16x16 column of cells spanning the world height. Block values
// index the world's state table; 0 is air.
type Chunk struct {
	CX, CZ int
	Blocks []uint16 // len = 16*16*height

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*chunkSize + y*chunkSize*chunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
