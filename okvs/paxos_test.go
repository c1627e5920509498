//
// paxos_test.go
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

func testPaxosRoundtrip(t *testing.T, n, weight int, dt DenseType,
	randomize bool) {

	param, err := NewPaxosParam(n, weight, 40, dt)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})
	p.Debug = true

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	var prng *PRNG
	if randomize {
		prng = NewPRNG(BlockFromUint64(5, 6))
	}

	output := make([]Block, param.Size())
	if err := p.Solve(keys, values, output, prng); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	dec := make([]Block, n)
	if err := p.Decode(keys, dec, output); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range keys {
		if !dec[i].Equal(values[i]) {
			t.Fatalf("key %d: decoded %v, expected %v",
				i, dec[i], values[i])
		}
	}
}

func TestPaxosGF2(t *testing.T) {
	testPaxosRoundtrip(t, 1000, 3, GF2Dense, false)
	testPaxosRoundtrip(t, 1000, 3, GF2Dense, true)
}

func TestPaxosGF128(t *testing.T) {
	testPaxosRoundtrip(t, 1000, 3, GF128Dense, false)
	testPaxosRoundtrip(t, 1000, 3, GF128Dense, true)
}

func TestPaxosWeights(t *testing.T) {
	testPaxosRoundtrip(t, 500, 2, GF2Dense, true)
	testPaxosRoundtrip(t, 500, 4, GF2Dense, true)
}

func TestPaxosSmall(t *testing.T) {
	for n := 1; n < 40; n += 7 {
		testPaxosRoundtrip(t, n, 3, GF2Dense, true)
	}
}

func TestPaxosLargeIdx(t *testing.T) {
	// Crosses the uint16 index limit.
	testPaxosRoundtrip(t, 40000, 3, GF2Dense, true)
}

func TestPaxosVec(t *testing.T) {
	const n = 500
	const width = 4

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	hlp := BlockVecHelper{
		Width: width,
	}
	p := NewPaxos[[]Block](param, BlockFromUint64(1, 2), hlp)
	p.Debug = true

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	gen.Blocks(keys)

	values := hlp.NewVec(n)
	for i := range values {
		hlp.Random(gen, &values[i])
	}

	output := hlp.NewVec(param.Size())
	prng := NewPRNG(BlockFromUint64(5, 6))
	if err := p.Solve(keys, values, output, prng); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	dec := hlp.NewVec(n)
	if err := p.Decode(keys, dec, output); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range keys {
		if !hlp.Eq(dec[i], values[i]) {
			t.Fatalf("key %d decodes wrong", i)
		}
	}
}

func TestPaxosTiny(t *testing.T) {
	const n = 16

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, Block{}, BlockHelper{})
	p.Debug = true

	keys := make([]Block, n)
	values := make([]Block, n)
	for i := 0; i < n; i++ {
		keys[i] = BlockFromUint64(0, uint64(i))
		values[i] = BlockFromUint64(0, uint64(i)*0x1111111111111111)
	}

	output := make([]Block, param.Size())
	if err := p.Solve(keys, values, output, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	dec := make([]Block, n)
	if err := p.Decode(keys, dec, output); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range keys {
		if !dec[i].Equal(values[i]) {
			t.Fatalf("key %d: decoded %v, expected %v",
				i, dec[i], values[i])
		}
	}
}

func TestPaxosDeterministic(t *testing.T) {
	const n = 500

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	out0 := make([]Block, param.Size())
	out1 := make([]Block, param.Size())
	seed := BlockFromUint64(5, 6)
	if err := p.Solve(keys, values, out0, NewPRNG(seed)); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := p.Solve(keys, values, out1, NewPRNG(seed)); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := range out0 {
		if !out0[i].Equal(out1[i]) {
			t.Fatalf("position %d: %v != %v", i, out0[i], out1[i])
		}
	}
}

func TestPaxosLinearity(t *testing.T) {
	const n = 500

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	v0 := make([]Block, n)
	v1 := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(v0)
	gen.Blocks(v1)

	out0 := make([]Block, param.Size())
	out1 := make([]Block, param.Size())
	if err := p.Solve(keys, v0, out0, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := p.Solve(keys, v1, out1, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := range out0 {
		out0[i].Xor(out1[i])
	}

	dec := make([]Block, n)
	if err := p.Decode(keys, dec, out0); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range keys {
		want := v0[i]
		want.Xor(v1[i])
		if !dec[i].Equal(want) {
			t.Fatalf("key %d: decoded %v, expected %v", i, dec[i], want)
		}
	}
}

func TestPaxosDuplicateKey(t *testing.T) {
	const n = 100

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})
	p.Debug = true

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)
	keys[7] = keys[42]

	output := make([]Block, param.Size())
	err = p.Solve(keys, values, output, nil)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPaxosShapeErrors(t *testing.T) {
	param, err := NewPaxosParam(100, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})

	keys := make([]Block, 100)
	values := make([]Block, 99)
	output := make([]Block, param.Size())

	err = p.Solve(keys, values, output, nil)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	values = make([]Block, 100)
	err = p.Solve(keys, values, output[:10], nil)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestPaxosDecodeAdd(t *testing.T) {
	const n = 200

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		t.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)

	output := make([]Block, param.Size())
	if err := p.Solve(keys, values, output, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	hashes := make([]Block, n)
	p.hasher.HashKeys(hashes, keys)

	dec := make([]Block, n)
	gen.Blocks(dec)
	base := make([]Block, n)
	copy(base, dec)

	if err := p.DecodeHashedAdd(hashes, dec, output); err != nil {
		t.Fatalf("DecodeHashedAdd: %v", err)
	}
	for i := range dec {
		expected := base[i]
		expected.Xor(values[i])
		if !dec[i].Equal(expected) {
			t.Fatalf("key %d: additive decode wrong", i)
		}
	}
}

func BenchmarkPaxosSolve(b *testing.B) {
	const n = 1 << 14

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		b.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)
	output := make([]Block, param.Size())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.Solve(keys, values, output, nil); err != nil {
			b.Fatalf("Solve: %v", err)
		}
	}
}

func BenchmarkPaxosDecode(b *testing.B) {
	const n = 1 << 14

	param, err := NewPaxosParam(n, 3, 40, GF2Dense)
	if err != nil {
		b.Fatalf("NewPaxosParam: %v", err)
	}
	p := NewPaxos[Block](param, BlockFromUint64(1, 2), BlockHelper{})

	gen := NewPRNG(BlockFromUint64(3, 4))
	keys := make([]Block, n)
	values := make([]Block, n)
	gen.Blocks(keys)
	gen.Blocks(values)
	output := make([]Block, param.Size())
	if err := p.Solve(keys, values, output, nil); err != nil {
		b.Fatalf("Solve: %v", err)
	}
	dec := make([]Block, n)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.Decode(keys, dec, output); err != nil {
			b.Fatalf("Decode: %v", err)
		}
	}
}
