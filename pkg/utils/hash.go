package utils

import (
	"fmt"
	"hash/fnv"
)

// HashString returns a short stable hex digest of input, used for cache
// keys. Not collision-resistant in the cryptographic sense.
func HashString(input string) string {
	h := fnv.New64a()
	h.Write([]byte(input))
	return fmt.Sprintf("%016x", h.Sum64())
}
