package assets

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Hash returns the hex-encoded 128-bit xxh3 digest of the file at path.
//
// A missing or unreadable file yields "" rather than an error; callers treat
// an empty digest as unknown, which never matches anything.
func Hash(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return formatDigest(h.Sum128())
}

// HashData returns the digest of an in-memory buffer, matching Hash.
func HashData(data []byte) string {
	return formatDigest(xxh3.Hash128(data))
}

func formatDigest(sum xxh3.Uint128) string {
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}

// HashSet digests every path and returns the set of non-empty digests.
func HashSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if d := Hash(p); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}
