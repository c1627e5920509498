//
// baxos_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"errors"
	"testing"
)

func testBaxosRoundtrip(t *testing.T, n, binSize, numThreads int) {
	b, err := NewBaxos[Block](n, binSize, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), BlockHelper{})
	if err != nil {
		t.Fatalf("NewBaxos: %v", err)
	}
	b.Debug = true

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	output := make([]Block, b.Size())
	prng := NewPRNG(BlockFromUint64(5, 6))
	if err := b.Solve(keys, values, output, numThreads, prng); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	dec := make([]Block, n)
	if err := b.Decode(keys, dec, output, numThreads); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range keys {
		if !dec[i].Equal(values[i]) {
			t.Fatalf("key %d: decoded %v, expected %v",
				i, dec[i], values[i])
		}
	}
}

func TestBaxosSingleBin(t *testing.T) {
	testBaxosRoundtrip(t, 1000, 2000, 1)
}

func TestBaxosMultiBin(t *testing.T) {
	testBaxosRoundtrip(t, 5000, 1000, 1)
}

func TestBaxosParallel(t *testing.T) {
	testBaxosRoundtrip(t, 5000, 1000, 4)
	testBaxosRoundtrip(t, 5000, 500, 8)
}

func TestBaxosUnevenStripes(t *testing.T) {
	// 1000 items over 7 workers: six stripes of 143, the last of 142.
	testBaxosRoundtrip(t, 1000, 100, 7)
}

func TestBaxosVec(t *testing.T) {
	const n = 3000
	const width = 2

	hlp := BlockVecHelper{
		Width: width,
	}
	b, err := NewBaxos[[]Block](n, 500, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), hlp)
	if err != nil {
		t.Fatalf("NewBaxos: %v", err)
	}
	b.Debug = true

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	gen.Blocks(keys)

	values := hlp.NewVec(n)
	for i := range values {
		hlp.Random(gen, &values[i])
	}

	output := hlp.NewVec(b.Size())
	if err := b.Solve(keys, values, output, 4, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	dec := hlp.NewVec(n)
	if err := b.Decode(keys, dec, output, 4); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range keys {
		if !hlp.Eq(dec[i], values[i]) {
			t.Fatalf("key %d decodes wrong", i)
		}
	}
}

func TestBaxosOverflow(t *testing.T) {
	// Dimension the bins for 1000 items, then feed five times that:
	// every bin exceeds its capacity bound.
	b, err := NewBaxos[Block](1000, 100, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), BlockHelper{})
	if err != nil {
		t.Fatalf("NewBaxos: %v", err)
	}

	const n = 5000
	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	output := make([]Block, b.Size())
	err = b.Solve(keys, values, output, 2, nil)
	if !errors.Is(err, ErrBinOverflow) {
		t.Fatalf("expected ErrBinOverflow, got %v", err)
	}
}

func TestBaxosDeterministic(t *testing.T) {
	const n = 5000

	b, err := NewBaxos[Block](n, 1000, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), BlockHelper{})
	if err != nil {
		t.Fatalf("NewBaxos: %v", err)
	}

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	seed := BlockFromUint64(5, 6)
	out0 := make([]Block, b.Size())
	out1 := make([]Block, b.Size())
	if err := b.Solve(keys, values, out0, 4, NewPRNG(seed)); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := b.Solve(keys, values, out1, 4, NewPRNG(seed)); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := range out0 {
		if !out0[i].Equal(out1[i]) {
			t.Fatalf("position %d: %v != %v", i, out0[i], out1[i])
		}
	}
}

func TestBaxosNonMember(t *testing.T) {
	const n = 5000

	b, err := NewBaxos[Block](n, 1000, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), BlockHelper{})
	if err != nil {
		t.Fatalf("NewBaxos: %v", err)
	}

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	output := make([]Block, b.Size())
	if err := b.Solve(keys, values, output, 4, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	// Decoding keys that were never encoded returns arbitrary values
	// without error.
	other := make([]Block, 1000)
	gen.Blocks(other)
	dec := make([]Block, len(other))
	if err := b.Decode(other, dec, output, 4); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestBaxosShapeErrors(t *testing.T) {
	b, err := NewBaxos[Block](1000, 100, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), BlockHelper{})
	if err != nil {
		t.Fatalf("NewBaxos: %v", err)
	}

	keys := make([]Block, 1000)
	values := make([]Block, 1000)
	output := make([]Block, b.Size())

	err = b.Solve(keys, values[:999], output, 1, nil)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	err = b.Solve(keys, values, output[:1], 1, nil)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	if _, err = NewBaxos[Block](0, 100, 3, 40, GF2Dense,
		Block{}, BlockHelper{}); err == nil {
		t.Fatal("numItems 0 accepted")
	}
}

func BenchmarkBaxosSolve(b *testing.B) {
	const n = 1 << 16

	bx, err := NewBaxos[Block](n, 1<<14, 3, 40, GF2Dense,
		BlockFromUint64(1, 2), BlockHelper{})
	if err != nil {
		b.Fatalf("NewBaxos: %v", err)
	}

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)
	output := make([]Block, bx.Size())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bx.Solve(keys, values, output, 4, nil); err != nil {
			b.Fatalf("Solve: %v", err)
		}
	}
}
