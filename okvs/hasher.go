//
// hasher.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// batchSize is the width of the batched hashing and decoding fast
// paths.
const batchSize = 32

// Hasher maps hashed keys to matrix rows: weight pairwise-distinct
// sparse column indices and a dense band block. The mapping is a pure
// function of (key, seed, dimensions).
type Hasher struct {
	param PaxosParam
	input *AES
	idx   *AES
	dense *AES
}

// NewHasher creates a hasher for the encoding dimensions, keyed by
// the seed.
func NewHasher(param PaxosParam, seed Block) *Hasher {
	prng := NewPRNG(seed)
	return &Hasher{
		param: param,
		input: NewAES(prng.Block()),
		idx:   NewAES(prng.Block()),
		dense: NewAES(prng.Block()),
	}
}

// reduce64 maps x uniformly to [0, n) with the multiply-shift
// reduction.
func reduce64(x, n uint64) uint64 {
	hi, _ := bits.Mul64(x, n)
	return hi
}

// HashKey hashes an input key.
func (h *Hasher) HashKey(key Block) Block {
	return h.input.HashBlock(key)
}

// HashKeys hashes the input keys of in into out.
func (h *Hasher) HashKeys(out, in []Block) {
	h.input.HashBlocks(out, in)
}

// BuildRow computes the row of the hashed key: the sparse indices are
// stored into idxs, whose length selects the row weight, and the
// dense band block is returned. Colliding index candidates are
// resampled from a counter so the indices are always pairwise
// distinct.
func (h *Hasher) BuildRow(hash Block, idxs []uint64) Block {
	m := uint64(h.param.SparseSize)
	w := len(idxs)

	for j := 0; j < w; j++ {
		t := hash
		t.Xor(BlockFromUint64(0x726f77, uint64(j)))
		idxs[j] = reduce64(h.idx.HashBlock(t).Low64(), m)
	}
	h.fixupRow(hash, idxs, m)
	return h.dense.HashBlock(hash)
}

// fixupRow resamples colliding sparse indices from a counter stream.
// The schedule depends only on (hash, initial candidates) so the
// scalar and batched row builders agree.
func (h *Hasher) fixupRow(hash Block, idxs []uint64, m uint64) {
	ctr := uint64(len(idxs))
	for j := 1; j < len(idxs); j++ {
	sample:
		for {
			for _, prev := range idxs[:j] {
				if prev == idxs[j] {
					t := hash
					t.Xor(BlockFromUint64(0x726f77, ctr))
					ctr++
					idxs[j] = reduce64(
						h.idx.HashBlock(t).Low64(), m)
					continue sample
				}
			}
			break
		}
	}
}

// BuildRow32 computes batchSize rows at once. The sparse indices are
// stored into idxs with a stride of the row weight; the dense band
// blocks are stored into dense.
func (h *Hasher) BuildRow32(hashes []Block, idxs []uint64, dense []Block) {
	w := h.param.Weight
	m := uint64(h.param.SparseSize)

	var tmp, out [batchSize]Block

	// First candidate round for all rows and positions, batched.
	for j := 0; j < w; j++ {
		for i := 0; i < batchSize; i++ {
			t := hashes[i]
			t.Xor(BlockFromUint64(0x726f77, uint64(j)))
			tmp[i] = t
		}
		h.idx.HashBlocks(out[:], tmp[:])
		for i := 0; i < batchSize; i++ {
			idxs[i*w+j] = reduce64(out[i].Low64(), m)
		}
	}

	// Resolve collisions row by row.
	for i := 0; i < batchSize; i++ {
		h.fixupRow(hashes[i], idxs[i*w:(i+1)*w], m)
	}

	h.dense.HashBlocks(dense, hashes)
}

// binIdxCompress compresses a hashed key to the 64-bit value used for
// bin routing.
func binIdxCompress(hash Block) uint64 {
	var d BlockData
	return xxhash.Sum64(hash.Bytes(&d))
}

// BinIdx returns the bin of the hashed key.
func BinIdx(hash Block, numBins uint64) uint64 {
	return reduce64(binIdxCompress(hash), numBins)
}

// BinIdx32 computes the bins of batchSize hashed keys.
func BinIdx32(hashes []Block, numBins uint64, out []uint64) {
	for i := 0; i < batchSize; i++ {
		out[i] = BinIdx(hashes[i], numBins)
	}
}
