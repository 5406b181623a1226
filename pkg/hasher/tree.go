package hasher

import (
	"context"
	"encoding/hex"
	"math/bits"

	"lukechampine.com/blake3/guts"

	"github.com/sdejongh/cmpf/pkg/pool"
)

const (
	// simdSpan is the run of chunks consumed by one CompressBuffer call
	simdSpan = guts.MaxSIMD * guts.ChunkSize
	// subtreeSize is the share of input compressed by one worker. It must be a
	// power-of-two multiple of simdSpan.
	subtreeSize = 1 << 20
)

// treeStack holds the chaining values of completed subtrees, at most one per height
type treeStack struct {
	cvs     [64][8]uint32
	counter uint64 // chunks consumed; bit i is set while a subtree of height i is held
}

// push adds the subtree of the given height that starts at the current
// counter, merging equal-height neighbours.
func (s *treeStack) push(cv [8]uint32, height int) {
	i := height
	for s.counter&(1<<i) != 0 {
		cv = guts.ChainingValue(guts.ParentNode(s.cvs[i], cv, &guts.IV, 0))
		i++
	}
	s.cvs[i] = cv
	s.counter += 1 << height
}

// root folds the held subtrees into n, the rightmost node, and finalizes the tree
func (s *treeStack) root(n guts.Node) string {
	for i := bits.TrailingZeros64(s.counter); i < bits.Len64(s.counter); i++ {
		if s.counter&(1<<i) != 0 {
			n = guts.ParentNode(s.cvs[i], guts.ChainingValue(n), &guts.IV, 0)
		}
	}
	n.Flags |= guts.FlagRoot
	out := guts.WordsToBytes(guts.CompressNode(n))
	return hex.EncodeToString(out[:32])
}

// treeBLAKE3 returns the BLAKE3 digest of data. Whole subtrees of subtreeSize
// bytes are compressed on the pool workers; the tail after the last whole
// subtree is compressed on the calling goroutine.
func treeBLAKE3(data []byte, p *pool.Pool) string {
	// subtrees followed by more input; the final one is needed as a node
	whole := (len(data) - 1) / subtreeSize

	cvs := make([][8]uint32, whole)
	_ = p.ForEach(context.Background(), whole, func(_ context.Context, i int) error {
		off := i * subtreeSize
		cvs[i] = guts.ChainingValue(subtree(data[off:off+subtreeSize], uint64(off/guts.ChunkSize)))
		return nil
	})

	var s treeStack
	height := bits.TrailingZeros64(subtreeSize / guts.ChunkSize)
	for _, cv := range cvs {
		s.push(cv, height)
	}

	rest := data[whole*subtreeSize:]
	if len(rest) == subtreeSize {
		return s.root(subtree(rest, s.counter))
	}
	for len(rest) > guts.ChunkSize {
		s.push(guts.ChainingValue(guts.CompressChunk(rest[:guts.ChunkSize], &guts.IV, s.counter, 0)), 0)
		rest = rest[guts.ChunkSize:]
	}
	return s.root(guts.CompressChunk(rest, &guts.IV, s.counter, 0))
}

// subtree compresses a full power-of-two run of chunks, at least simdSpan
// bytes long, starting at chunk counter.
func subtree(buf []byte, counter uint64) guts.Node {
	n := len(buf) / simdSpan
	if n == 1 {
		return guts.CompressBuffer((*[simdSpan]byte)(buf), simdSpan, &guts.IV, counter, 0)
	}

	cvs := make([][8]uint32, n)
	for i := range cvs {
		off := i * simdSpan
		block := (*[simdSpan]byte)(buf[off : off+simdSpan])
		cvs[i] = guts.ChainingValue(guts.CompressBuffer(block, simdSpan, &guts.IV, counter+uint64(i*guts.MaxSIMD), 0))
	}
	for len(cvs) > 2 {
		half := len(cvs) / 2
		for i := 0; i < half; i++ {
			cvs[i] = guts.ChainingValue(guts.ParentNode(cvs[2*i], cvs[2*i+1], &guts.IV, 0))
		}
		cvs = cvs[:half]
	}
	return guts.ParentNode(cvs[0], cvs[1], &guts.IV, 0)
}
