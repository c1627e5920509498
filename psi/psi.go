//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package psi implements two-party private set intersection. The
// parties run an OPRF over their protocol connection; the sender
// transmits masked PRF outputs of its set and the receiver learns the
// indices of its own elements that the sender's set contains.
package psi

import (
	"crypto/rand"
	"fmt"
	"math/bits"

	"github.com/cockroachdb/swiss"
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/psi/okvs"
	"github.com/markkurossi/psi/oprf"
	"github.com/markkurossi/psi/p2p"
	"github.com/markkurossi/psi/vole"
)

// DefaultSsp is the default statistical security parameter.
const DefaultSsp = 40

// params holds the options common to both protocol parties.
type params struct {
	// SenderSize and RecverSize are the set sizes of the parties.
	// Both parties must agree on them.
	SenderSize int
	RecverSize int

	// Ssp is the statistical security parameter.
	Ssp int

	// Malicious enables the malicious-secure OPRF variant.
	Malicious bool

	// NoCompress disables mask truncation so that full 16-byte masks
	// are transmitted.
	NoCompress bool

	// NumThreads is the number of worker threads.
	NumThreads int

	// ReducedRounds fuses the VOLE expansion message into the OPRF
	// correction flush.
	ReducedRounds bool

	// Fake derives the VOLE correlation from a fixed seed.
	// Benchmarking only.
	Fake bool

	// BinSize overrides the OKVS bin size when non-zero.
	BinSize int

	// Weight overrides the OKVS row weight when non-zero.
	Weight int

	// Debug enables encoding verification.
	Debug bool

	// Timing collects a profiling report when non-nil.
	Timing *Timing
}

func (p *params) numThreads() int {
	if p.NumThreads < 1 {
		return 1
	}
	return p.NumThreads
}

func (p *params) sample(label string) {
	if p.Timing != nil {
		p.Timing.Sample(label, nil)
	}
}

// MaskSize returns the number of bytes of each transmitted PRF mask.
func (p *params) MaskSize() int {
	if p.Malicious || p.NoCompress {
		return 16
	}
	n := uint64(p.SenderSize) * uint64(p.RecverSize)
	ms := (p.Ssp + log2Ceil(n) + 7) / 8
	if ms > 16 {
		ms = 16
	}
	return ms
}

func log2Ceil(v uint64) int {
	if v <= 1 {
		return 0
	}
	return bits.Len64(v - 1)
}

// Sender implements the PSI sender.
type Sender struct {
	params
}

// NewSender creates a PSI sender for the set sizes.
func NewSender(senderSize, recverSize int) *Sender {
	return &Sender{
		params: params{
			SenderSize: senderSize,
			RecverSize: recverSize,
			Ssp:        DefaultSsp,
		},
	}
}

// Run runs the sender side of the protocol for the input set.
func (s *Sender) Run(inputs []okvs.Block, conn *p2p.Conn) error {
	if len(inputs) != s.SenderSize {
		return fmt.Errorf("psi: %d inputs, expected %d: %w",
			len(inputs), s.SenderSize, okvs.ErrShapeMismatch)
	}
	ms := s.MaskSize()
	nt := s.numThreads()

	ext := vole.NewExt(nil, conn, vole.SenderRole)
	ext.Fake = s.Fake
	ext.ReducedRounds = s.ReducedRounds

	snd := oprf.NewSender(ext, conn)
	snd.Malicious = s.Malicious
	snd.Ssp = s.Ssp
	snd.Debug = s.Debug
	if s.BinSize > 0 {
		snd.BinSize = s.BinSize
	}
	if s.Weight > 0 {
		snd.Weight = s.Weight
	}

	if err := snd.Send(s.RecverSize, nt); err != nil {
		return fmt.Errorf("psi: %w", err)
	}
	s.sample("OPRF")

	hashes := make([]okvs.Block, len(inputs))
	if err := snd.EvalBatch(inputs, hashes, nt); err != nil {
		return fmt.Errorf("psi: %w", err)
	}
	s.sample("Eval")

	buf := make([]byte, len(inputs)*ms)
	var bd okvs.BlockData
	for i := range hashes {
		copy(buf[i*ms:], hashes[i].LowBytes(&bd, ms))
	}
	if err := conn.SendData(buf); err != nil {
		return fmt.Errorf("psi: send masks: %w", err)
	}
	if err := conn.Flush(); err != nil {
		return fmt.Errorf("psi: flush masks: %w", err)
	}
	s.sample("SendMasks")

	return nil
}

// Receiver implements the PSI receiver.
type Receiver struct {
	params

	// Seed randomizes the OKVS encoding. A zero seed draws a fresh
	// random seed for each run.
	Seed okvs.Block

	// Intersection contains the receiver-set indices of the
	// intersection after a successful Run.
	Intersection []int
}

// NewReceiver creates a PSI receiver for the set sizes.
func NewReceiver(senderSize, recverSize int) *Receiver {
	return &Receiver{
		params: params{
			SenderSize: senderSize,
			RecverSize: recverSize,
			Ssp:        DefaultSsp,
		},
	}
}

// Run runs the receiver side of the protocol for the input set. On
// success the intersection indices are in r.Intersection.
func (r *Receiver) Run(inputs []okvs.Block, conn *p2p.Conn) error {
	if len(inputs) != r.RecverSize {
		return fmt.Errorf("psi: %d inputs, expected %d: %w",
			len(inputs), r.RecverSize, okvs.ErrShapeMismatch)
	}
	r.Intersection = nil

	ms := r.MaskSize()
	nt := r.numThreads()

	seed := r.Seed
	if seed.IsZero() {
		var err error
		seed, err = okvs.NewBlock(rand.Reader)
		if err != nil {
			return fmt.Errorf("psi: seed: %w", err)
		}
	}

	ext := vole.NewExt(nil, conn, vole.ReceiverRole)
	ext.Fake = r.Fake
	ext.ReducedRounds = r.ReducedRounds

	rcv := oprf.NewReceiver(ext, conn)
	rcv.Malicious = r.Malicious
	rcv.Ssp = r.Ssp
	rcv.Debug = r.Debug
	if r.BinSize > 0 {
		rcv.BinSize = r.BinSize
	}
	if r.Weight > 0 {
		rcv.Weight = r.Weight
	}

	hashes := make([]okvs.Block, len(inputs))
	if err := rcv.Receive(inputs, hashes, okvs.NewPRNG(seed), nt); err != nil {
		return fmt.Errorf("psi: %w", err)
	}
	r.sample("OPRF")

	if nt < 2 {
		return r.intersect(hashes, conn, ms)
	}
	return r.intersectParallel(hashes, conn, ms, nt)
}

func (r *Receiver) intersect(hashes []okvs.Block, conn *p2p.Conn,
	ms int) error {

	m := swiss.New[okvs.Block, int](len(hashes))
	for i := range hashes {
		m.Put(hashes[i].MaskLow(ms), i)
	}
	r.sample("Insert")

	data, err := conn.ReceiveData()
	if err != nil {
		return fmt.Errorf("psi: receive masks: %w", err)
	}
	if len(data) != r.SenderSize*ms {
		return fmt.Errorf("psi: received %d mask bytes, expected %d",
			len(data), r.SenderSize*ms)
	}
	r.sample("Recv")

	var hits []int
	var h okvs.Block
	for j := 0; j < r.SenderSize; j++ {
		h.SetLowBytes(data[j*ms : (j+1)*ms])
		if idx, ok := m.Get(h); ok {
			hits = append(hits, idx)
		}
	}
	r.Intersection = hits
	r.sample("Find")

	return nil
}

// reduce32 maps v to [0, n) without division.
func reduce32(v uint32, n int) int {
	return int(uint64(v) * uint64(n) >> 32)
}

// intersectParallel shards the mask map and the lookups by the low 32
// bits of the masked hash. The mask always covers the low 32 bits so
// both parties' views of an element land in the same shard.
func (r *Receiver) intersectParallel(hashes []okvs.Block, conn *p2p.Conn,
	ms, nt int) error {

	maps := make([]*swiss.Map[okvs.Block, int], nt)

	var g errgroup.Group
	for t := 0; t < nt; t++ {
		g.Go(func() error {
			m := swiss.New[okvs.Block, int](len(hashes)/nt + 1)
			for i := range hashes {
				key := hashes[i].MaskLow(ms)
				if reduce32(key.Low32(), nt) == t {
					m.Put(key, i)
				}
			}
			maps[t] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.sample("Insert")

	data, err := conn.ReceiveData()
	if err != nil {
		return fmt.Errorf("psi: receive masks: %w", err)
	}
	if len(data) != r.SenderSize*ms {
		return fmt.Errorf("psi: received %d mask bytes, expected %d",
			len(data), r.SenderSize*ms)
	}
	r.sample("Recv")

	hits := make([][]int, nt)
	for t := 0; t < nt; t++ {
		g.Go(func() error {
			var h okvs.Block
			for j := 0; j < r.SenderSize; j++ {
				h.SetLowBytes(data[j*ms : (j+1)*ms])
				if reduce32(h.Low32(), nt) != t {
					continue
				}
				if idx, ok := maps[t].Get(h); ok {
					hits[t] = append(hits[t], idx)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var result []int
	for t := 0; t < nt; t++ {
		result = append(result, hits[t]...)
	}
	r.Intersection = result
	r.sample("Find")

	return nil
}
