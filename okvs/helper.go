//
// helper.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

// Helper defines the value group operations of the encoding. The
// solver is generic over the value type V; the dense elimination
// additionally multiplies values by GF(2^128) scalars.
type Helper[V any] interface {
	// NewVec creates a zero vector of n values.
	NewVec(n int) []V

	// Assign sets *dst = src.
	Assign(dst *V, src V)

	// Add sets *dst += src.
	Add(dst *V, src V)

	// Sub sets *dst -= src.
	Sub(dst *V, src V)

	// Multiply sets *dst = src * s.
	Multiply(dst *V, src V, s Block)

	// Zero clears *dst.
	Zero(dst *V)

	// Eq tests if the values are equal.
	Eq(a, b V) bool

	// Random sets *dst to a random value.
	Random(prng *PRNG, dst *V)
}

// BlockHelper implements Helper for single-block values in
// GF(2^128).
type BlockHelper struct{}

// NewVec implements Helper.NewVec.
func (BlockHelper) NewVec(n int) []Block {
	return make([]Block, n)
}

// Assign implements Helper.Assign.
func (BlockHelper) Assign(dst *Block, src Block) {
	*dst = src
}

// Add implements Helper.Add.
func (BlockHelper) Add(dst *Block, src Block) {
	dst.Xor(src)
}

// Sub implements Helper.Sub. Addition and subtraction coincide in
// characteristic 2.
func (BlockHelper) Sub(dst *Block, src Block) {
	dst.Xor(src)
}

// Multiply implements Helper.Multiply.
func (BlockHelper) Multiply(dst *Block, src Block, s Block) {
	*dst = gf128Mul(src, s)
}

// Zero implements Helper.Zero.
func (BlockHelper) Zero(dst *Block) {
	*dst = Block{}
}

// Eq implements Helper.Eq.
func (BlockHelper) Eq(a, b Block) bool {
	return a.Equal(b)
}

// Random implements Helper.Random.
func (BlockHelper) Random(prng *PRNG, dst *Block) {
	*dst = prng.Block()
}

// BlockVecHelper implements Helper for values that are rows of Width
// blocks. Scalar multiplication acts block-wise in GF(2^128).
type BlockVecHelper struct {
	Width int
}

// NewVec implements Helper.NewVec. The rows share one flat backing
// array.
func (h BlockVecHelper) NewVec(n int) [][]Block {
	flat := make([]Block, n*h.Width)
	vec := make([][]Block, n)
	for i := range vec {
		vec[i] = flat[i*h.Width : (i+1)*h.Width]
	}
	return vec
}

// Assign implements Helper.Assign.
func (h BlockVecHelper) Assign(dst *[]Block, src []Block) {
	copy(*dst, src)
}

// Add implements Helper.Add.
func (h BlockVecHelper) Add(dst *[]Block, src []Block) {
	d := *dst
	for i := range src {
		d[i].Xor(src[i])
	}
}

// Sub implements Helper.Sub.
func (h BlockVecHelper) Sub(dst *[]Block, src []Block) {
	h.Add(dst, src)
}

// Multiply implements Helper.Multiply.
func (h BlockVecHelper) Multiply(dst *[]Block, src []Block, s Block) {
	d := *dst
	for i := range src {
		d[i] = gf128Mul(src[i], s)
	}
}

// Zero implements Helper.Zero.
func (h BlockVecHelper) Zero(dst *[]Block) {
	d := *dst
	for i := range d {
		d[i] = Block{}
	}
}

// Eq implements Helper.Eq.
func (h BlockVecHelper) Eq(a, b []Block) bool {
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Random implements Helper.Random.
func (h BlockVecHelper) Random(prng *PRNG, dst *[]Block) {
	d := *dst
	for i := range d {
		d[i] = prng.Block()
	}
}
