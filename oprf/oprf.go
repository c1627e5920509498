//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package oprf implements a batched oblivious pseudorandom function
// from a VOLE correlation and a Baxos encoding. The receiver learns
// F(x) for each element x of its input set and the sender learns a
// key with which it can evaluate F on any value.
package oprf

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/markkurossi/psi/okvs"
	"github.com/markkurossi/psi/p2p"
	"github.com/markkurossi/psi/vole"
)

// Default encoding parameters.
const (
	DefaultBinSize = 1 << 14
	DefaultSsp     = 40
	DefaultWeight  = 3
)

// OPRF errors.
var (
	ErrMaliciousCheckFailed = errors.New(
		"oprf: malicious consistency check failed")
	ErrNotReady = errors.New("oprf: sender key not expanded")
)

// The input hash and the output finalization use fixed-key AES
// instances. The keys are protocol constants shared by both parties.
var (
	hashIn  = okvs.NewAES(okvs.BlockFromUint64(0x6f707266, 0x696e))
	hashOut = okvs.NewAES(okvs.BlockFromUint64(0x6f707266, 0x6f7574))
)

// newBaxos creates the OKVS encoder for n items. Both parties must
// construct it with identical parameters.
func newBaxos(n, binSize, weight, ssp int) (*okvs.Baxos[okvs.Block], error) {
	return okvs.NewBaxos[okvs.Block](n, binSize, weight, ssp,
		okvs.GF128Dense, okvs.Block{}, okvs.BlockHelper{})
}

// transcriptDigest computes the malicious-mode transcript digest over
// the encoded correction.
func transcriptDigest(data []byte) okvs.Block {
	sum := blake2b.Sum256(data)

	var w okvs.Block
	w.SetBytes(sum[:16])
	return w
}

// finalize computes the PRF output F(x) from the intermediate value
// w. The transcript digest binds the output to the correction in
// malicious mode and is zero otherwise.
func finalize(x, w, digest okvs.Block) okvs.Block {
	t := x
	t.Xor(w)
	t.Xor(digest)
	return hashOut.HashBlock(t)
}

// Sender implements the OPRF sender. After Send completes, the sender
// holds the PRF key and can evaluate the function on any value.
type Sender struct {
	vole vole.Sender
	conn *p2p.Conn

	// Malicious enables the transcript consistency check.
	Malicious bool

	// BinSize is the Baxos bin size.
	BinSize int

	// Weight is the sparse row weight of the encoding.
	Weight int

	// Ssp is the statistical security parameter.
	Ssp int

	// Debug enables encoding verification.
	Debug bool

	baxos  *okvs.Baxos[okvs.Block]
	delta  okvs.Block
	key    []okvs.Block
	digest okvs.Block
}

// NewSender creates an OPRF sender using the VOLE correlation
// generator over the connection.
func NewSender(v vole.Sender, conn *p2p.Conn) *Sender {
	return &Sender{
		vole:    v,
		conn:    conn,
		BinSize: DefaultBinSize,
		Weight:  DefaultWeight,
		Ssp:     DefaultSsp,
	}
}

// Send runs the sender side of the OPRF protocol for a receiver
// holding n inputs. On return the sender can evaluate the PRF with
// Eval and EvalBatch.
func (s *Sender) Send(n, numThreads int) error {
	baxos, err := newBaxos(n, s.BinSize, s.Weight, s.Ssp)
	if err != nil {
		return fmt.Errorf("oprf: encoder: %w", err)
	}
	baxos.Debug = s.Debug
	size := baxos.Size()

	delta, b, err := s.vole.ExpandSend(size)
	if err != nil {
		return fmt.Errorf("oprf: vole: %w", err)
	}

	data, err := s.conn.ReceiveData()
	if err != nil {
		return fmt.Errorf("oprf: receive correction: %w", err)
	}
	if len(data) != size*16 {
		return fmt.Errorf("oprf: correction size %d, expected %d",
			len(data), size*16)
	}

	// Fold the correction into the VOLE output: the result decodes to
	// Decode_C(y) ^ Delta*H(y) for every y the receiver encoded.
	var k okvs.Block
	for i := 0; i < size; i++ {
		k.SetBytes(data[i*16:])
		b[i].Xor(delta.Mul(k))
	}

	if s.Malicious {
		s.digest = transcriptDigest(data)
		var bd okvs.BlockData
		if err := s.conn.SendBlock(s.digest, &bd); err != nil {
			return fmt.Errorf("oprf: send digest: %w", err)
		}
		if err := s.conn.Flush(); err != nil {
			return fmt.Errorf("oprf: flush digest: %w", err)
		}
	} else {
		s.digest = okvs.Block{}
	}

	s.baxos = baxos
	s.delta = delta
	s.key = b

	return nil
}

// Eval evaluates the PRF on the value v.
func (s *Sender) Eval(v okvs.Block) (okvs.Block, error) {
	if s.key == nil {
		return okvs.Block{}, ErrNotReady
	}
	in := []okvs.Block{v}
	out := make([]okvs.Block, 1)
	if err := s.baxos.Decode(in, out, s.key, 1); err != nil {
		return okvs.Block{}, fmt.Errorf("oprf: decode: %w", err)
	}
	w := out[0]
	w.Xor(s.delta.Mul(hashIn.HashBlock(v)))
	return finalize(v, w, s.digest), nil
}

// EvalBatch evaluates the PRF on all inputs into outputs.
func (s *Sender) EvalBatch(inputs, outputs []okvs.Block,
	numThreads int) error {
	if s.key == nil {
		return ErrNotReady
	}
	if err := s.baxos.Decode(inputs, outputs, s.key, numThreads); err != nil {
		return fmt.Errorf("oprf: decode: %w", err)
	}
	for i, v := range inputs {
		outputs[i].Xor(s.delta.Mul(hashIn.HashBlock(v)))
		outputs[i] = finalize(v, outputs[i], s.digest)
	}
	return nil
}

// Receiver implements the OPRF receiver.
type Receiver struct {
	vole vole.Receiver
	conn *p2p.Conn

	// Malicious enables the transcript consistency check.
	Malicious bool

	// BinSize is the Baxos bin size.
	BinSize int

	// Weight is the sparse row weight of the encoding.
	Weight int

	// Ssp is the statistical security parameter.
	Ssp int

	// Debug enables encoding verification.
	Debug bool
}

// NewReceiver creates an OPRF receiver using the VOLE correlation
// generator over the connection.
func NewReceiver(v vole.Receiver, conn *p2p.Conn) *Receiver {
	return &Receiver{
		vole:    v,
		conn:    conn,
		BinSize: DefaultBinSize,
		Weight:  DefaultWeight,
		Ssp:     DefaultSsp,
	}
}

// Receive runs the receiver side of the OPRF protocol. It fills
// outputs with F(x) for each input x. The prng randomizes the free
// variables of the encoding.
func (r *Receiver) Receive(inputs, outputs []okvs.Block, prng *okvs.PRNG,
	numThreads int) error {
	if len(inputs) != len(outputs) {
		return fmt.Errorf("oprf: %d inputs, %d outputs: %w",
			len(inputs), len(outputs), okvs.ErrShapeMismatch)
	}
	baxos, err := newBaxos(len(inputs), r.BinSize, r.Weight, r.Ssp)
	if err != nil {
		return fmt.Errorf("oprf: encoder: %w", err)
	}
	baxos.Debug = r.Debug
	size := baxos.Size()

	a, c, err := r.vole.ExpandReceive(size)
	if err != nil {
		return fmt.Errorf("oprf: vole: %w", err)
	}

	values := make([]okvs.Block, len(inputs))
	hashIn.HashBlocks(values, inputs)

	p := make([]okvs.Block, size)
	if err := baxos.Solve(inputs, values, p, numThreads, prng); err != nil {
		return fmt.Errorf("oprf: encode: %w", err)
	}

	data := make([]byte, size*16)
	for i := range p {
		p[i].Xor(a[i])
		var bd okvs.BlockData
		copy(data[i*16:], p[i].Bytes(&bd))
	}
	if err := r.conn.SendData(data); err != nil {
		return fmt.Errorf("oprf: send correction: %w", err)
	}
	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("oprf: flush correction: %w", err)
	}

	var digest okvs.Block
	if r.Malicious {
		digest = transcriptDigest(data)

		var theirs okvs.Block
		var bd okvs.BlockData
		if err := r.conn.ReceiveBlock(&theirs, &bd); err != nil {
			return fmt.Errorf("oprf: receive digest: %w", err)
		}
		if !theirs.Equal(digest) {
			return ErrMaliciousCheckFailed
		}
	}

	if err := baxos.Decode(inputs, outputs, c, numThreads); err != nil {
		return fmt.Errorf("oprf: decode: %w", err)
	}
	for i, x := range inputs {
		outputs[i] = finalize(x, outputs[i], digest)
	}
	return nil
}
