package vecs

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Clone returns an independent copy of v. A nil input yields nil.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	c := make([]float64, len(v))
	copy(c, v)
	return c
}

// CloneBlocks returns an independent copy of a block tuple,
// including the per-block slices.
func CloneBlocks(w [][]float64) [][]float64 {
	if w == nil {
		return nil
	}
	c := make([][]float64, len(w))
	for i, b := range w {
		c[i] = Clone(b)
	}
	return c
}

// Digest fingerprints a vector. Equal vectors hash equal; the digest is
// stable across runs, so it is suitable for log fields and event payloads.
func Digest(v []float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, x := range v {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		d.Write(buf[:])
	}
	return d.Sum64()
}

// DigestBlocks fingerprints a block tuple. Block boundaries take part in
// the fingerprint, so [[1 2]] and [[1] [2]] hash differently.
func DigestBlocks(w [][]float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, b := range w {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(b)))
		d.Write(buf[:])
		for _, x := range b {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			d.Write(buf[:])
		}
	}
	return d.Sum64()
}
