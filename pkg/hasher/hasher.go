// Package hasher computes SHA-256 and BLAKE3 digests of files with a size-tiered
// read strategy.
//
// Files at or above the mmap threshold are hashed through a MappedView. The
// caller must guarantee that such files are not modified or truncated while
// they are being hashed; see MappedView.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/pool"
)

const (
	// MmapThreshold is the size from which files are memory mapped
	MmapThreshold = 32 * 1024
	// ParallelThreshold is the size from which BLAKE3 compresses subtrees on
	// several workers and SHA-256 runs beside it
	ParallelThreshold = 128 * 1024 * 1024

	// chunkSize bounds each update so both hashers consume the same bytes while hot in cache
	chunkSize = 1 << 20
)

// Hasher produces the digests selected by algo for the file at path
type Hasher interface {
	Hash(path string, algo models.Algorithm) (models.HashResult, error)
}

// Options controls the size tiers
type Options struct {
	MmapThreshold     int64
	ParallelThreshold int64
	// Pool runs the BLAKE3 subtrees of files above ParallelThreshold; nil uses one worker per CPU
	Pool *pool.Pool
}

// DefaultOptions returns the standard size tiers
func DefaultOptions() Options {
	return Options{
		MmapThreshold:     MmapThreshold,
		ParallelThreshold: ParallelThreshold,
	}
}

// FileHasher hashes local files
type FileHasher struct {
	opts Options
}

// New creates a hasher with the default size tiers
func New() *FileHasher {
	return NewWithOptions(DefaultOptions())
}

// NewWithPool creates a hasher with the default size tiers that hashes
// large files on p
func NewWithPool(p *pool.Pool) *FileHasher {
	opts := DefaultOptions()
	opts.Pool = p
	return NewWithOptions(opts)
}

// NewWithOptions creates a hasher with custom size tiers
func NewWithOptions(opts Options) *FileHasher {
	if opts.MmapThreshold < 1 {
		opts.MmapThreshold = MmapThreshold
	}
	if opts.ParallelThreshold < 1 {
		opts.ParallelThreshold = ParallelThreshold
	}
	if opts.ParallelThreshold < opts.MmapThreshold {
		opts.ParallelThreshold = opts.MmapThreshold
	}
	if opts.Pool == nil {
		opts.Pool = pool.Default()
	}
	return &FileHasher{opts: opts}
}

// Hash computes the digests of one file in a single pass over its bytes
func (h *FileHasher) Hash(path string, algo models.Algorithm) (models.HashResult, error) {
	if !algo.Valid() {
		return models.HashResult{}, fmt.Errorf("invalid algorithm %q", algo)
	}

	f, err := os.Open(path)
	if err != nil {
		return models.HashResult{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.HashResult{}, fmt.Errorf("failed to stat file: %w", err)
	}
	size := info.Size()

	switch {
	case size == 0:
		return sum(nil, algo), nil

	case size < h.opts.MmapThreshold:
		data, err := io.ReadAll(f)
		if err != nil {
			return models.HashResult{}, fmt.Errorf("failed to read file: %w", err)
		}
		return sum(data, algo), nil

	default:
		view, err := Map(f, size)
		if err != nil {
			return models.HashResult{}, fmt.Errorf("failed to map file: %w", err)
		}
		defer view.Close()

		if size >= h.opts.ParallelThreshold && algo.UsesBLAKE3() {
			return h.sumParallel(view.Bytes(), algo), nil
		}
		return sum(view.Bytes(), algo), nil
	}
}

// sum feeds every active hasher from the same chunks of data
func sum(data []byte, algo models.Algorithm) models.HashResult {
	var sh hash.Hash
	var bh *blake3.Hasher
	if algo.UsesSHA256() {
		sh = sha256.New()
	}
	if algo.UsesBLAKE3() {
		bh = blake3.New()
	}

	for off := 0; off < len(data); off += chunkSize {
		chunk := data[off:min(off+chunkSize, len(data))]
		if sh != nil {
			sh.Write(chunk)
		}
		if bh != nil {
			bh.Write(chunk)
		}
	}

	var result models.HashResult
	if sh != nil {
		result.SHA256 = hex.EncodeToString(sh.Sum(nil))
	}
	if bh != nil {
		result.BLAKE3 = hex.EncodeToString(bh.Sum(nil))
	}
	return result
}

// sumParallel hashes large mapped files. BLAKE3 splits the bytes into
// subtrees compressed across the pool while SHA-256, which cannot be split,
// runs on its own goroutine.
func (h *FileHasher) sumParallel(data []byte, algo models.Algorithm) models.HashResult {
	var result models.HashResult
	var wg sync.WaitGroup

	if algo.UsesSHA256() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.SHA256 = sum(data, models.AlgoSHA256).SHA256
		}()
	}
	result.BLAKE3 = treeBLAKE3(data, h.opts.Pool)
	wg.Wait()

	return result
}
