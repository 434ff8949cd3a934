// Package hashing samples pages from a chapter and computes SHA-1 digests
// of their bytes. Digests identify a gallery on remote sources and across
// exports, and back the hash-based duplicate check.
package hashing

import (
	"crypto/sha1" //nolint:gosec // remote sources index pages by SHA-1
	"encoding/hex"
	"io"
	"os"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// DefaultSampleSize is the number of pages sampled per chapter.
const DefaultSampleSize = 4

// chunkSize is the read size used while digesting.
const chunkSize = 8 << 10

// SampleIndices returns the zero-based page indices to hash for a chapter
// of pages pages. Chapters of at most k+1 pages are hashed whole. Longer
// chapters are hashed at floor(pages/k)*i-1 for i in 1..k-1 plus the last
// page, so ten pages with k=4 gives 1, 3, 5, 9.
func SampleIndices(pages, k int) []int {
	if pages <= 0 {
		return nil
	}
	if k < 1 {
		k = DefaultSampleSize
	}
	if pages <= k+1 {
		out := make([]int, pages)
		for i := range out {
			out[i] = i
		}
		return out
	}
	step := pages / k
	out := make([]int, 0, k)
	for i := 1; i < k; i++ {
		out = append(out, step*i-1)
	}
	return append(out, pages-1)
}

// Digest returns the hex SHA-1 of everything r yields, read in 8 KiB chunks.
func Digest(r io.Reader) (string, error) {
	h := sha1.New() //nolint:gosec // see import
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile returns the hex SHA-1 of a file's contents.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIO, "open page %s", path)
	}
	defer f.Close()

	sum, err := Digest(f)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIO, "read page %s", path)
	}
	return sum, nil
}
