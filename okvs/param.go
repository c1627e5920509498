//
// param.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"fmt"
	"math"
	"math/bits"
)

// DenseType selects the field of the dense band columns.
type DenseType int

// Dense band field types.
const (
	// GF2Dense treats the dense block as individual GF(2) columns.
	GF2Dense DenseType = iota

	// GF128Dense treats the dense block as the generator of a short
	// column vector of its GF(2^128) powers.
	GF128Dense
)

func (dt DenseType) String() string {
	switch dt {
	case GF2Dense:
		return "gf2"
	case GF128Dense:
		return "gf128"
	default:
		return fmt.Sprintf("{DenseType %d}", dt)
	}
}

// PaxosParam defines the dimensions of a single-bin encoding.
type PaxosParam struct {
	NumItems   int
	Weight     int
	Ssp        int
	Dt         DenseType
	SparseSize int
	DenseSize  int
}

// Size returns the total encoding size in blocks.
func (p PaxosParam) Size() int {
	return p.SparseSize + p.DenseSize
}

// log2Ceil returns ceil(log2(v)) for v >= 1.
func log2Ceil(v uint64) int {
	if v <= 1 {
		return 0
	}
	return bits.Len64(v - 1)
}

// weightExpansion returns the sparse expansion factor for the row
// weight. Larger weights pack tighter.
func weightExpansion(weight int) float64 {
	switch weight {
	case 2:
		return 2.75
	case 3:
		return 2.4
	case 4:
		return 2.1
	default:
		return 2.0
	}
}

// NewPaxosParam computes the encoding dimensions for numItems items
// with the given row weight, statistical security parameter, and
// dense field type.
func NewPaxosParam(numItems, weight, ssp int, dt DenseType) (
	PaxosParam, error) {

	if numItems <= 0 {
		return PaxosParam{}, fmt.Errorf("okvs: numItems %d: %w",
			numItems, ErrShapeMismatch)
	}
	if weight < 2 {
		return PaxosParam{}, fmt.Errorf("okvs: weight %d: %w",
			weight, ErrShapeMismatch)
	}

	e := weightExpansion(weight)
	if numItems < 512 {
		// Small instances need proportionally more slack for the
		// peeling to succeed with the same failure probability.
		e += e * float64(512-numItems) / 512
	}

	var denseSize int
	switch dt {
	case GF2Dense:
		denseSize = ssp + log2Ceil(uint64(numItems))
	case GF128Dense:
		d := (weight - 2) * log2Ceil(uint64(numItems))
		if d < 1 {
			d = 1
		}
		denseSize = (ssp+d-1)/d + 1
	default:
		return PaxosParam{}, fmt.Errorf("okvs: dense type %v: %w",
			dt, ErrShapeMismatch)
	}
	if denseSize > 128 {
		denseSize = 128
	}

	return PaxosParam{
		NumItems:   numItems,
		Weight:     weight,
		Ssp:        ssp,
		Dt:         dt,
		SparseSize: int(math.Ceil(e * float64(numItems))),
		DenseSize:  denseSize,
	}, nil
}

// logBinom returns log2 of the binomial coefficient C(n, k).
func logBinom(n, k float64) float64 {
	ln, _ := math.Lgamma(n + 1)
	lk, _ := math.Lgamma(k + 1)
	lnk, _ := math.Lgamma(n - k + 1)
	return (ln - lk - lnk) / math.Ln2
}

// binOverflows tests if the probability that any of numBins bins
// receives more than binSize of the numBalls balls exceeds 2^-ssp.
func binOverflows(numBins, numBalls, binSize uint64, ssp int) bool {
	if binSize >= numBalls {
		return false
	}
	n := float64(numBalls)
	b := float64(binSize)
	logP := -math.Log2(float64(numBins))

	// Union bound over bins and the binomial upper tail.
	logTail := math.Log2(float64(numBins)) +
		logBinom(n, b) + b*logP
	return logTail > -float64(ssp)
}

// BinSize returns the per-bin capacity so that throwing numBalls
// balls into numBins bins overflows with probability at most 2^-ssp.
func BinSize(numBins, numBalls uint64, ssp int) uint64 {
	if numBins <= 1 {
		return numBalls
	}
	lo := numBalls / numBins
	hi := numBalls

	for lo < hi {
		mid := (lo + hi) / 2
		if binOverflows(numBins, numBalls, mid, ssp) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
