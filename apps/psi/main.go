//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command psi runs the private set intersection protocol as a
// performance and demo harness. By default both parties run inside
// the process over a pipe; with -addr one party runs over TCP.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/markkurossi/psi/okvs"
	"github.com/markkurossi/psi/p2p"
	"github.com/markkurossi/psi/psi"
)

var verbose = 0

func main() {
	nn := flag.Int("nn", 14, "Log2 size of both sets")
	nns := flag.Int("nns", 0, "Log2 size of the sender set")
	nnr := flag.Int("nnr", 0, "Log2 size of the receiver set")
	reps := flag.Int("t", 1, "Number of repetitions")
	nt := flag.Int("nt", 1, "Number of worker threads")
	malicious := flag.Bool("m", false, "Malicious security")
	fake := flag.Bool("f", false, "Fake VOLE correlation (benchmarking)")
	noCompress := flag.Bool("nc", false, "Do not compress the masks")
	binSize := flag.Int("bs", 0, "OKVS bin size")
	logBinSize := flag.Int("lbs", 0, "Log2 of the OKVS bin size")
	fVerbose := flag.Bool("v", false, "Verbose output")
	fDebug := flag.Bool("vv", false, "Debug output")
	epsilon := flag.Float64("e", 0.1, "Epsilon parameter, shown in the verbose banner only")
	weight := flag.Int("w", 3, "OKVS row weight")
	addr := flag.String("addr", "", "TCP address for a two-process run")
	client := flag.Bool("client", false, "Run the sender, dialing -addr")
	flag.Parse()

	if *fVerbose {
		verbose = 1
	}
	if *fDebug {
		verbose = 2
	}

	ns := 1 << *nn
	nr := 1 << *nn
	if *nns > 0 {
		ns = 1 << *nns
	}
	if *nnr > 0 {
		nr = 1 << *nnr
	}
	bs := *binSize
	if bs == 0 && *logBinSize > 0 {
		bs = 1 << *logBinSize
	}

	if verbose > 0 {
		log.Printf("|S|=%d, |R|=%d, threads=%d, weight=%d, e=%.2f\n",
			ns, nr, *nt, *weight, *epsilon)
	}

	cfg := config{
		senderSize: ns,
		recverSize: nr,
		numThreads: *nt,
		weight:     *weight,
		binSize:    bs,
		malicious:  *malicious,
		fake:       *fake,
		noCompress: *noCompress,
	}

	for i := 0; i < *reps; i++ {
		var err error
		if len(*addr) == 0 {
			err = runLocal(cfg)
		} else {
			err = runRemote(cfg, *addr, *client)
		}
		if err != nil {
			log.Printf("%s\n", err)
			os.Exit(1)
		}
	}
}

type config struct {
	senderSize int
	recverSize int
	numThreads int
	weight     int
	binSize    int
	malicious  bool
	fake       bool
	noCompress bool
}

func (cfg config) sender() *psi.Sender {
	snd := psi.NewSender(cfg.senderSize, cfg.recverSize)
	snd.Malicious = cfg.malicious
	snd.Fake = cfg.fake
	snd.NoCompress = cfg.noCompress
	snd.NumThreads = cfg.numThreads
	snd.BinSize = cfg.binSize
	snd.Weight = cfg.weight
	snd.Debug = verbose > 1
	return snd
}

func (cfg config) receiver() *psi.Receiver {
	rcv := psi.NewReceiver(cfg.senderSize, cfg.recverSize)
	rcv.Malicious = cfg.malicious
	rcv.Fake = cfg.fake
	rcv.NoCompress = cfg.noCompress
	rcv.NumThreads = cfg.numThreads
	rcv.BinSize = cfg.binSize
	rcv.Weight = cfg.weight
	rcv.Debug = verbose > 1
	if verbose > 0 {
		rcv.Timing = psi.NewTiming()
	}
	return rcv
}

// makeSets creates the party input sets with a known intersection:
// the first min(|S|,|R|)/2 elements are shared.
func makeSets(cfg config) (snd, rcv []okvs.Block, common int) {
	prng := okvs.NewPRNG(okvs.BlockFromUint64(0x5e7, 0x90e))

	common = cfg.senderSize
	if cfg.recverSize < common {
		common = cfg.recverSize
	}
	common /= 2

	snd = make([]okvs.Block, cfg.senderSize)
	rcv = make([]okvs.Block, cfg.recverSize)
	for i := 0; i < common; i++ {
		snd[i] = prng.Block()
		rcv[i] = snd[i]
	}
	for i := common; i < cfg.senderSize; i++ {
		snd[i] = prng.Block()
	}
	for i := common; i < cfg.recverSize; i++ {
		rcv[i] = prng.Block()
	}
	return snd, rcv, common
}

func runLocal(cfg config) error {
	sndSet, rcvSet, common := makeSets(cfg)

	sndConn, rcvConn := p2p.Pipe()
	defer sndConn.Close()
	defer rcvConn.Close()

	done := make(chan error)
	go func() {
		done <- cfg.sender().Run(sndSet, sndConn)
	}()

	rcv := cfg.receiver()
	if err := rcv.Run(rcvSet, rcvConn); err != nil {
		return err
	}
	if err := <-done; err != nil {
		return err
	}
	if rcv.Timing != nil {
		rcv.Timing.Print(rcvConn.Stats)
	}
	if len(rcv.Intersection) != common {
		return fmt.Errorf("intersection size %d, expected %d",
			len(rcv.Intersection), common)
	}
	fmt.Printf("intersection: %d elements\n", len(rcv.Intersection))
	return nil
}

func runRemote(cfg config, addr string, client bool) error {
	sndSet, rcvSet, common := makeSets(cfg)

	if client {
		conn, err := p2p.Dial(addr)
		if err != nil {
			return err
		}
		defer conn.Close()
		return cfg.sender().Run(sndSet, conn)
	}

	conn, err := p2p.Listen(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	rcv := cfg.receiver()
	if err := rcv.Run(rcvSet, conn); err != nil {
		return err
	}
	if rcv.Timing != nil {
		rcv.Timing.Print(conn.Stats)
	}
	if len(rcv.Intersection) != common {
		return fmt.Errorf("intersection size %d, expected %d",
			len(rcv.Intersection), common)
	}
	fmt.Printf("intersection: %d elements\n", len(rcv.Intersection))
	return nil
}
