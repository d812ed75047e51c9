package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

func (s *store[V]) recordKey(userKey string) string {
	return "rec:" + s.ns + ":" + userKey
}

// batchKey is a deterministic key over the member set: the prefix plus the
// first 16 hex chars of a SHA-256 over the sorted members. sortedKeys must
// be distinct and sorted ascending.
func (s *store[V]) batchKey(sortedKeys []string) string {
	sum := sha256.Sum256([]byte(strings.Join(sortedKeys, ",")))
	return "batch:" + s.ns + ":" + hex.EncodeToString(sum[:8])
}

// uniqSorted returns the distinct keys in ascending order.
func uniqSorted(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i == 0 || k != out[n-1] {
			out[n] = k
			n++
		}
	}
	return out[:n]
}
