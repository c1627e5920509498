//
// baxos.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// decodeBatch is the number of pending keys a decode worker buffers
// per bin before flushing them through the batched bin decoder.
const decodeBatch = 512

// Baxos is a binned encoder: items are routed into bins by a hash of
// their key and each bin is encoded independently with a single-bin
// solver. Binning caps the solver working set so large instances stay
// cache resident and parallelize.
type Baxos[V any] struct {
	NumItems    int
	NumBins     int
	ItemsPerBin int
	Param       PaxosParam
	Debug       bool

	hlp    Helper[V]
	paxos  *Paxos[V]
	hasher *Hasher
}

// NewBaxos creates a binned encoder for numItems items with the
// desired bin load binSize.
func NewBaxos[V any](numItems, binSize, weight, ssp int, dt DenseType,
	seed Block, hlp Helper[V]) (*Baxos[V], error) {

	if numItems <= 0 || binSize <= 0 {
		return nil, fmt.Errorf("okvs: %d items, bin size %d: %w",
			numItems, binSize, ErrShapeMismatch)
	}
	numBins := (numItems + binSize - 1) / binSize
	itemsPerBin := numItems
	if numBins > 1 {
		itemsPerBin = int(BinSize(uint64(numBins), uint64(numItems), ssp))
	}
	param, err := NewPaxosParam(itemsPerBin, weight, ssp, dt)
	if err != nil {
		return nil, err
	}
	b := &Baxos[V]{
		NumItems:    numItems,
		NumBins:     numBins,
		ItemsPerBin: itemsPerBin,
		Param:       param,
		hlp:         hlp,
		paxos:       NewPaxos(param, seed, hlp),
	}
	b.hasher = b.paxos.hasher
	return b, nil
}

// Size returns the total encoding size in values.
func (b *Baxos[V]) Size() int {
	return b.NumBins * b.Param.Size()
}

// Solve encodes the key-value pairs into output with numThreads
// workers. If prng is non-nil the unconstrained output positions are
// randomized.
func (b *Baxos[V]) Solve(keys []Block, values, output []V,
	numThreads int, prng *PRNG) error {

	if len(keys) != len(values) {
		return fmt.Errorf("okvs: %d keys, %d values: %w",
			len(keys), len(values), ErrShapeMismatch)
	}
	if len(output) != b.Size() {
		return fmt.Errorf("okvs: output %d, size %d: %w",
			len(output), b.Size(), ErrShapeMismatch)
	}
	if numThreads < 1 {
		numThreads = 1
	}
	b.paxos.Debug = b.Debug

	if b.NumBins == 1 {
		if err := b.paxos.Solve(keys, values, output, prng); err != nil {
			return err
		}
		return b.verify(keys, values, output, numThreads)
	}

	// Per-bin PRNGs are derived up front so the parallel solve does
	// not share generator state.
	var binPRNG []*PRNG
	if prng != nil {
		binPRNG = make([]*PRNG, b.NumBins)
		for i := range binPRNG {
			binPRNG[i] = NewPRNG(prng.Block())
		}
	}

	// Scatter: stripe the input over the workers; each worker
	// hashes its stripe and appends (hash, input index) into its own
	// per-bin shard.
	type shard struct {
		hashes []Block
		inIdx  []int
	}
	shards := make([]shard, numThreads*b.NumBins)

	n := len(keys)
	stripe := (n + numThreads - 1) / numThreads

	var scatter errgroup.Group
	for t := 0; t < numThreads; t++ {
		start := t * stripe
		end := start + stripe
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		mine := shards[t*b.NumBins : (t+1)*b.NumBins]
		scatter.Go(func() error {
			var hbuf [batchSize]Block
			var bbuf [batchSize]uint64

			for i := start; i < end; i += batchSize {
				k := end - i
				if k > batchSize {
					k = batchSize
				}
				b.hasher.HashKeys(hbuf[:k], keys[i:i+k])
				if k == batchSize {
					BinIdx32(hbuf[:], uint64(b.NumBins), bbuf[:])
				} else {
					for j := 0; j < k; j++ {
						bbuf[j] = BinIdx(hbuf[j], uint64(b.NumBins))
					}
				}
				for j := 0; j < k; j++ {
					s := &mine[bbuf[j]]
					s.hashes = append(s.hashes, hbuf[j])
					s.inIdx = append(s.inIdx, i+j)
				}
			}
			return nil
		})
	}
	if err := scatter.Wait(); err != nil {
		return err
	}

	// Solve: worker t owns bins t, t+T, ... Each bin concatenates
	// its shards in worker order and runs the single-bin solver into
	// its slice of the output.
	var group errgroup.Group
	for t := 0; t < numThreads; t++ {
		first := t
		group.Go(func() error {
			for bin := first; bin < b.NumBins; bin += numThreads {
				count := 0
				for tt := 0; tt < numThreads; tt++ {
					count += len(shards[tt*b.NumBins+bin].hashes)
				}
				if count > b.ItemsPerBin {
					return fmt.Errorf("okvs: bin %d: %d items, max %d: %w",
						bin, count, b.ItemsPerBin, ErrBinOverflow)
				}
				hashes := make([]Block, 0, count)
				vals := b.hlp.NewVec(count)
				vi := 0
				for tt := 0; tt < numThreads; tt++ {
					s := &shards[tt*b.NumBins+bin]
					hashes = append(hashes, s.hashes...)
					for _, ii := range s.inIdx {
						b.hlp.Assign(&vals[vi], values[ii])
						vi++
					}
				}
				size := b.Param.Size()
				var bp *PRNG
				if binPRNG != nil {
					bp = binPRNG[bin]
				}
				err := b.paxos.SolveHashed(hashes, vals,
					output[bin*size:(bin+1)*size], bp)
				if err != nil {
					return fmt.Errorf("okvs: bin %d: %w", bin, err)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return b.verify(keys, values, output, numThreads)
}

// verify re-decodes all encoded keys in debug mode.
func (b *Baxos[V]) verify(keys []Block, values, output []V,
	numThreads int) error {

	if !b.Debug {
		return nil
	}
	dec := b.hlp.NewVec(len(keys))
	if err := b.Decode(keys, dec, output, numThreads); err != nil {
		return err
	}
	for i := range keys {
		if !b.hlp.Eq(dec[i], values[i]) {
			return fmt.Errorf("okvs: key %d decodes wrong: %w",
				i, ErrEncodeFailed)
		}
	}
	return nil
}

// Decode recovers the values of the keys from the encoding P with
// numThreads workers.
func (b *Baxos[V]) Decode(keys []Block, out []V, P []V,
	numThreads int) error {

	if len(keys) != len(out) {
		return fmt.Errorf("okvs: %d keys, %d outputs: %w",
			len(keys), len(out), ErrShapeMismatch)
	}
	if len(P) != b.Size() {
		return fmt.Errorf("okvs: encoding %d, size %d: %w",
			len(P), b.Size(), ErrShapeMismatch)
	}
	if b.NumBins == 1 {
		return b.paxos.Decode(keys, out, P)
	}
	if numThreads < 1 {
		numThreads = 1
	}

	n := len(keys)
	stripe := (n + numThreads - 1) / numThreads
	size := b.Param.Size()

	var group errgroup.Group
	for t := 0; t < numThreads; t++ {
		start := t * stripe
		end := start + stripe
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		group.Go(func() error {
			type pending struct {
				hashes []Block
				outIdx []int
			}
			pend := make([]pending, b.NumBins)
			scratch := b.hlp.NewVec(decodeBatch)

			flush := func(bin int) error {
				p := &pend[bin]
				if len(p.hashes) == 0 {
					return nil
				}
				err := b.paxos.DecodeHashed(p.hashes,
					scratch[:len(p.hashes)], P[bin*size:(bin+1)*size])
				if err != nil {
					return err
				}
				for i, oi := range p.outIdx {
					b.hlp.Assign(&out[oi], scratch[i])
				}
				p.hashes = p.hashes[:0]
				p.outIdx = p.outIdx[:0]
				return nil
			}

			var hbuf [batchSize]Block
			var bbuf [batchSize]uint64

			for i := start; i < end; i += batchSize {
				k := end - i
				if k > batchSize {
					k = batchSize
				}
				b.hasher.HashKeys(hbuf[:k], keys[i:i+k])
				if k == batchSize {
					BinIdx32(hbuf[:], uint64(b.NumBins), bbuf[:])
				} else {
					for j := 0; j < k; j++ {
						bbuf[j] = BinIdx(hbuf[j], uint64(b.NumBins))
					}
				}
				for j := 0; j < k; j++ {
					bin := int(bbuf[j])
					p := &pend[bin]
					p.hashes = append(p.hashes, hbuf[j])
					p.outIdx = append(p.outIdx, i+j)
					if len(p.hashes) >= decodeBatch {
						if err := flush(bin); err != nil {
							return err
						}
					}
				}
			}
			for bin := 0; bin < b.NumBins; bin++ {
				if err := flush(bin); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return group.Wait()
}
