//
// paxos.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"fmt"
)

// Idx constrains the sparse index representation of the solver. The
// smallest type fitting the sparse size plus one is selected at the
// public entry points.
type Idx interface {
	uint8 | uint16 | uint32 | uint64
}

// Paxos is a single-bin encoder over values of type V. It maps n
// key-value pairs into a vector P of Param.Size() values such that
// decoding any encoded key recovers its value.
type Paxos[V any] struct {
	Param  PaxosParam
	Debug  bool
	hlp    Helper[V]
	hasher *Hasher
}

// NewPaxos creates a single-bin encoder for the dimensions, keyed by
// the seed.
func NewPaxos[V any](param PaxosParam, seed Block, hlp Helper[V]) *Paxos[V] {
	return &Paxos[V]{
		Param:  param,
		hlp:    hlp,
		hasher: NewHasher(param, seed),
	}
}

// blockBit returns bit i of the block.
func blockBit(b Block, i int) uint64 {
	if i < 64 {
		return (b.D0 >> i) & 1
	}
	return (b.D1 >> (i - 64)) & 1
}

// Solve encodes the key-value pairs into output, whose length must be
// Param.Size(). If prng is non-nil, the unconstrained positions of
// the output are randomized, making the encoding pseudorandom.
func (p *Paxos[V]) Solve(keys []Block, values, output []V,
	prng *PRNG) error {

	hashes := make([]Block, len(keys))
	p.hasher.HashKeys(hashes, keys)
	return p.SolveHashed(hashes, values, output, prng)
}

// SolveHashed is Solve for pre-hashed keys.
func (p *Paxos[V]) SolveHashed(hashes []Block, values, output []V,
	prng *PRNG) error {

	if len(hashes) != len(values) {
		return fmt.Errorf("okvs: %d keys, %d values: %w",
			len(hashes), len(values), ErrShapeMismatch)
	}
	if len(output) != p.Param.Size() {
		return fmt.Errorf("okvs: output %d, size %d: %w",
			len(output), p.Param.Size(), ErrShapeMismatch)
	}
	if p.Debug {
		seen := make(map[Block]struct{}, len(hashes))
		for _, h := range hashes {
			if _, ok := seen[h]; ok {
				return fmt.Errorf("okvs: %v: %w", h, ErrDuplicateKey)
			}
			seen[h] = struct{}{}
		}
	}

	sparse := p.Param.SparseSize
	switch {
	case sparse+1 < 1<<8:
		return solve[uint8](p, hashes, values, output, prng)
	case sparse+1 < 1<<16:
		return solve[uint16](p, hashes, values, output, prng)
	case sparse+1 < 1<<32:
		return solve[uint32](p, hashes, values, output, prng)
	default:
		return solve[uint64](p, hashes, values, output, prng)
	}
}

// solve runs triangulation, dense elimination, and back-substitution
// with sparse indices of type I.
func solve[I Idx, V any](p *Paxos[V], hashes []Block, values []V,
	output []V, prng *PRNG) error {

	hlp := p.hlp
	n := len(hashes)
	w := p.Param.Weight
	m := p.Param.SparseSize
	g := p.Param.DenseSize

	// Row construction.
	rows := make([]I, n*w)
	dense := make([]Block, n)
	idx64 := make([]uint64, batchSize*w)

	i := 0
	for ; i+batchSize <= n; i += batchSize {
		p.hasher.BuildRow32(hashes[i:i+batchSize], idx64,
			dense[i:i+batchSize])
		for j, v := range idx64 {
			rows[i*w+j] = I(v)
		}
	}
	for ; i < n; i++ {
		dense[i] = p.hasher.BuildRow(hashes[i], idx64[:w])
		for j := 0; j < w; j++ {
			rows[i*w+j] = I(idx64[j])
		}
	}

	// Column weights and the row-index XOR trick for weight-1
	// lookup.
	colCount := make([]I, m)
	colRowXor := make([]I, m)
	for r := 0; r < n; r++ {
		for _, c := range rows[r*w : (r+1)*w] {
			colCount[c]++
			colRowXor[c] ^= I(r)
		}
	}

	// Triangulation: peel weight-1 columns; on stall move a row to
	// the gap.
	var stack []I
	for c := 0; c < m; c++ {
		if colCount[c] == 1 {
			stack = append(stack, I(c))
		}
	}

	rowRemoved := make([]bool, n)
	colPivot := make([]int, m)
	for c := range colPivot {
		colPivot[c] = -1
	}

	pivotRows := make([]I, 0, n)
	pivotCols := make([]I, 0, n)
	var gap []I

	removeRow := func(r I) {
		rowRemoved[r] = true
		for _, c := range rows[int(r)*w : (int(r)+1)*w] {
			colCount[c]--
			colRowXor[c] ^= r
			if colCount[c] == 1 {
				stack = append(stack, c)
			}
		}
	}

	removed := 0
	scan := 0
	for removed < n {
		if len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if colCount[c] != 1 {
				continue
			}
			r := colRowXor[c]
			colPivot[c] = len(pivotRows)
			pivotRows = append(pivotRows, r)
			pivotCols = append(pivotCols, c)
			removeRow(r)
			removed++
			continue
		}
		// Stall: no weight-1 column exists. Defer the next
		// remaining row to the dense solve.
		for rowRemoved[scan] {
			scan++
		}
		r := I(scan)
		gap = append(gap, r)
		removeRow(r)
		removed++
	}

	// Gap elimination: cancel each gap row's sparse columns against
	// the triangular system. A forward sweep over the peel schedule
	// suffices since combining a pivot row only introduces columns
	// with later pivots or without one.
	numGap := len(gap)
	fixedZero := make([]bool, m)

	gapMask := make([]Block, numGap)
	var gapCoef [][]Block
	if p.Param.Dt == GF128Dense {
		gapCoef = make([][]Block, numGap)
	}
	gapVals := hlp.NewVec(numGap)
	gapLive := make([]bool, numGap)

	scratch := hlp.NewVec(2)
	acc, tmp := &scratch[0], &scratch[1]

	addDenseRow := func(gi int, d Block) {
		switch p.Param.Dt {
		case GF2Dense:
			gapMask[gi].Xor(d)
		case GF128Dense:
			coef := gf128One
			for j := 0; j < g; j++ {
				coef = gf128Mul(coef, d)
				gapCoef[gi][j].Xor(coef)
			}
		}
	}

	zero := hlp.NewVec(1)

	for gi, r := range gap {
		if p.Param.Dt == GF128Dense {
			gapCoef[gi] = make([]Block, g)
		}
		set := make(map[I]bool)
		toggle := func(c I) {
			if set[c] {
				delete(set, c)
			} else {
				set[c] = true
			}
		}
		for _, c := range rows[int(r)*w : (int(r)+1)*w] {
			toggle(c)
		}
		hlp.Add(&gapVals[gi], values[r])
		addDenseRow(gi, dense[r])

		for pi := 0; pi < len(pivotCols); pi++ {
			c := pivotCols[pi]
			if !set[c] {
				continue
			}
			pr := pivotRows[pi]
			for _, c2 := range rows[int(pr)*w : (int(pr)+1)*w] {
				toggle(c2)
			}
			hlp.Add(&gapVals[gi], values[pr])
			addDenseRow(gi, dense[pr])
		}
		// Unpivoted columns remain: pin them to zero.
		for c := range set {
			fixedZero[c] = true
		}

		empty := gapMask[gi].IsZero()
		if p.Param.Dt == GF128Dense {
			empty = true
			for _, c := range gapCoef[gi] {
				if !c.IsZero() {
					empty = false
					break
				}
			}
		}
		if empty {
			if !hlp.Eq(gapVals[gi], zero[0]) {
				return fmt.Errorf("okvs: inconsistent row: %w",
					ErrEncodeFailed)
			}
			continue
		}
		gapLive[gi] = true
	}

	// Dense elimination over the gap equations.
	densePivot := make([]int, g)
	for j := range densePivot {
		densePivot[j] = -1
	}

	var err error
	switch p.Param.Dt {
	case GF2Dense:
		err = eliminateGF2(hlp, gapMask, gapVals, gapLive, densePivot,
			g, zero[0])
	case GF128Dense:
		err = eliminateGF128(hlp, gapCoef, gapVals, gapLive, densePivot,
			g, zero[0], tmp)
	}
	if err != nil {
		return err
	}

	// Free dense variables.
	for j := 0; j < g; j++ {
		if densePivot[j] != -1 {
			continue
		}
		if prng != nil {
			hlp.Random(prng, &output[m+j])
		} else {
			hlp.Zero(&output[m+j])
		}
	}
	// Pivot dense variables from the reduced equations.
	for j := 0; j < g; j++ {
		gi := densePivot[j]
		if gi == -1 {
			continue
		}
		hlp.Zero(acc)
		hlp.Add(acc, gapVals[gi])
		for k := 0; k < g; k++ {
			if k == j || densePivot[k] != -1 {
				continue
			}
			switch p.Param.Dt {
			case GF2Dense:
				if blockBit(gapMask[gi], k) != 0 {
					hlp.Sub(acc, output[m+k])
				}
			case GF128Dense:
				if !gapCoef[gi][k].IsZero() {
					hlp.Multiply(tmp, output[m+k], gapCoef[gi][k])
					hlp.Sub(acc, *tmp)
				}
			}
		}
		hlp.Assign(&output[m+j], *acc)
	}

	// Free sparse columns.
	for c := 0; c < m; c++ {
		if colPivot[c] != -1 {
			continue
		}
		if fixedZero[c] || prng == nil {
			hlp.Zero(&output[c])
		} else {
			hlp.Random(prng, &output[c])
		}
	}

	// Back-substitution in reverse peel order. The pivot column of a
	// row is defined only by rows peeled before it, so processing
	// last-peeled first sees all other columns assigned.
	for pi := len(pivotRows) - 1; pi >= 0; pi-- {
		r := pivotRows[pi]
		c := pivotCols[pi]

		hlp.Zero(acc)
		hlp.Add(acc, values[r])
		for _, c2 := range rows[int(r)*w : (int(r)+1)*w] {
			if c2 != c {
				hlp.Sub(acc, output[c2])
			}
		}
		subDense(p.Param, hlp, dense[r], output, acc, tmp)
		hlp.Assign(&output[c], *acc)
	}
	return nil
}

// eliminateGF2 reduces the bit-packed gap equations to reduced row
// echelon form in place.
func eliminateGF2[V any](hlp Helper[V], mask []Block, vals []V,
	live []bool, densePivot []int, g int, zero V) error {

	for gi := range mask {
		if !live[gi] {
			continue
		}
		// Reduce by existing pivots.
		for j := 0; j < g; j++ {
			pj := densePivot[j]
			if pj != -1 && blockBit(mask[gi], j) != 0 {
				mask[gi].Xor(mask[pj])
				hlp.Sub(&vals[gi], vals[pj])
			}
		}
		pivot := -1
		for j := 0; j < g; j++ {
			if blockBit(mask[gi], j) != 0 {
				pivot = j
				break
			}
		}
		if pivot == -1 {
			if !hlp.Eq(vals[gi], zero) {
				return fmt.Errorf("okvs: singular dense system: %w",
					ErrEncodeFailed)
			}
			live[gi] = false
			continue
		}
		// Eliminate the new pivot from the earlier rows.
		for k := range mask {
			if k != gi && live[k] && blockBit(mask[k], pivot) != 0 {
				mask[k].Xor(mask[gi])
				hlp.Sub(&vals[k], vals[gi])
			}
		}
		densePivot[pivot] = gi
	}
	return nil
}

// eliminateGF128 reduces the GF(2^128) gap equations to reduced row
// echelon form in place.
func eliminateGF128[V any](hlp Helper[V], coef [][]Block, vals []V,
	live []bool, densePivot []int, g int, zero V, tmp *V) error {

	for gi := range coef {
		if !live[gi] {
			continue
		}
		for j := 0; j < g; j++ {
			pj := densePivot[j]
			if pj == -1 || coef[gi][j].IsZero() {
				continue
			}
			f := coef[gi][j]
			for k := 0; k < g; k++ {
				if !coef[pj][k].IsZero() {
					coef[gi][k].Xor(gf128Mul(f, coef[pj][k]))
				}
			}
			hlp.Multiply(tmp, vals[pj], f)
			hlp.Sub(&vals[gi], *tmp)
		}
		pivot := -1
		for j := 0; j < g; j++ {
			if !coef[gi][j].IsZero() {
				pivot = j
				break
			}
		}
		if pivot == -1 {
			if !hlp.Eq(vals[gi], zero) {
				return fmt.Errorf("okvs: singular dense system: %w",
					ErrEncodeFailed)
			}
			live[gi] = false
			continue
		}
		// Normalize the pivot to one.
		inv := gf128Inv(coef[gi][pivot])
		for k := 0; k < g; k++ {
			coef[gi][k] = gf128Mul(coef[gi][k], inv)
		}
		hlp.Multiply(tmp, vals[gi], inv)
		hlp.Assign(&vals[gi], *tmp)

		for k := range coef {
			if k == gi || !live[k] || coef[k][pivot].IsZero() {
				continue
			}
			f := coef[k][pivot]
			for j := 0; j < g; j++ {
				if !coef[gi][j].IsZero() {
					coef[k][j].Xor(gf128Mul(f, coef[gi][j]))
				}
			}
			hlp.Multiply(tmp, vals[gi], f)
			hlp.Sub(&vals[k], *tmp)
		}
		densePivot[pivot] = gi
	}
	return nil
}

// subDense subtracts the dense band contribution of the row with
// dense block d from acc.
func subDense[V any](param PaxosParam, hlp Helper[V], d Block, P []V,
	acc, tmp *V) {

	m := param.SparseSize
	switch param.Dt {
	case GF2Dense:
		for j := 0; j < param.DenseSize; j++ {
			if blockBit(d, j) != 0 {
				hlp.Sub(acc, P[m+j])
			}
		}
	case GF128Dense:
		coef := gf128One
		for j := 0; j < param.DenseSize; j++ {
			coef = gf128Mul(coef, d)
			hlp.Multiply(tmp, P[m+j], coef)
			hlp.Sub(acc, *tmp)
		}
	}
}

// Decode recovers the values of the keys from the encoding P.
func (p *Paxos[V]) Decode(keys []Block, out []V, P []V) error {
	hashes := make([]Block, len(keys))
	p.hasher.HashKeys(hashes, keys)
	return p.DecodeHashed(hashes, out, P)
}

// DecodeHashed is Decode for pre-hashed keys.
func (p *Paxos[V]) DecodeHashed(hashes []Block, out []V, P []V) error {
	return p.decodeHashed(hashes, out, P, false)
}

// DecodeHashedAdd adds the decoded values into out instead of
// assigning them.
func (p *Paxos[V]) DecodeHashedAdd(hashes []Block, out []V, P []V) error {
	return p.decodeHashed(hashes, out, P, true)
}

func (p *Paxos[V]) decodeHashed(hashes []Block, out []V, P []V,
	add bool) error {

	if len(hashes) != len(out) {
		return fmt.Errorf("okvs: %d keys, %d outputs: %w",
			len(hashes), len(out), ErrShapeMismatch)
	}
	if len(P) != p.Param.Size() {
		return fmt.Errorf("okvs: encoding %d, size %d: %w",
			len(P), p.Param.Size(), ErrShapeMismatch)
	}
	hlp := p.hlp
	w := p.Param.Weight

	scratch := hlp.NewVec(2)
	acc, tmp := &scratch[0], &scratch[1]

	idx64 := make([]uint64, batchSize*w)
	dense := make([]Block, batchSize)

	n := len(hashes)
	i := 0
	for ; i+batchSize <= n; i += batchSize {
		p.hasher.BuildRow32(hashes[i:i+batchSize], idx64,
			dense[:batchSize])
		for k := 0; k < batchSize; k++ {
			decodeRow(p.Param, hlp, idx64[k*w:(k+1)*w], dense[k],
				&out[i+k], P, acc, tmp, add)
		}
	}
	for ; i < n; i++ {
		d := p.hasher.BuildRow(hashes[i], idx64[:w])
		decodeRow(p.Param, hlp, idx64[:w], d, &out[i], P, acc, tmp, add)
	}
	return nil
}

func decodeRow[V any](param PaxosParam, hlp Helper[V], idxs []uint64,
	d Block, out *V, P []V, acc, tmp *V, add bool) {

	hlp.Zero(acc)
	for _, c := range idxs {
		hlp.Add(acc, P[c])
	}
	subDense(param, hlp, d, P, acc, tmp)
	if add {
		hlp.Add(out, *acc)
	} else {
		hlp.Assign(out, *acc)
	}
}
