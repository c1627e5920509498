//
// gf128.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

// The field GF(2^128) is defined by the reduction polynomial
// x^128+x^7+x^2+x+1. A Block holds a field element with D0 as the low
// 64 coefficients and D1 as the high 64 coefficients.

func clmul64(a, b uint64) (lo, hi uint64) {
	for i := 0; i < 64; i++ {
		if (b>>i)&1 != 0 {
			if i == 0 {
				lo ^= a
			} else {
				lo ^= a << i
				hi ^= a >> (64 - i)
			}
		}
	}
	return
}

// mul128 computes the 256-bit carry-less product of a and b. It
// returns the result as two 128-bit blocks.
func mul128(a, b Block) (lo, hi Block) {
	a0, a1 := a.D0, a.D1
	b0, b1 := b.D0, b.D1

	p00lo, p00hi := clmul64(a0, b0)
	p01lo, p01hi := clmul64(a0, b1)
	p10lo, p10hi := clmul64(a1, b0)
	p11lo, p11hi := clmul64(a1, b1)

	midLo := p01lo ^ p10lo
	midHi := p01hi ^ p10hi

	lo.D0 = p00lo
	lo.D1 = p00hi ^ midLo

	hi.D0 = midHi ^ p11lo
	hi.D1 = p11hi

	return
}

// gf128Reduce reduces the 256-bit carry-less product modulo the field
// polynomial.
func gf128Reduce(lo, hi Block) Block {
	// x^128 = x^7+x^2+x+1 = 0x87.
	rLo, rHi := clmul64(hi.D1, 0x87)
	d1 := lo.D1 ^ rLo
	d2 := hi.D0 ^ rHi

	sLo, sHi := clmul64(d2, 0x87)
	return Block{
		D0: lo.D0 ^ sLo,
		D1: d1 ^ sHi,
	}
}

// gf128Mul multiplies a and b in GF(2^128).
func gf128Mul(a, b Block) Block {
	lo, hi := mul128(a, b)
	return gf128Reduce(lo, hi)
}

// Mul multiplies b and o in GF(2^128).
func (b Block) Mul(o Block) Block {
	return gf128Mul(b, o)
}

// gf128One is the multiplicative identity of GF(2^128).
var gf128One = Block{D0: 1}

// gf128Pow computes a^n in GF(2^128).
func gf128Pow(a Block, n uint64) Block {
	r := gf128One
	for ; n > 0; n >>= 1 {
		if n&1 != 0 {
			r = gf128Mul(r, a)
		}
		a = gf128Mul(a, a)
	}
	return r
}

// gf128Inv computes the multiplicative inverse of a in GF(2^128) as
// a^(2^128-2). The inverse of zero is zero.
func gf128Inv(a Block) Block {
	t := a
	r := gf128One
	for i := 0; i < 127; i++ {
		t = gf128Mul(t, t)
		r = gf128Mul(r, t)
	}
	return r
}
