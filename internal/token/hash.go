package token

import "hash/fnv"

// Hash indexes a token value for storage and revocation lookups. FNV-1a is
// enough here: the raw token already carries full cryptographic entropy, so
// the hash is an index, not a secret-derivation step.
func Hash(value string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	return h.Sum64()
}
