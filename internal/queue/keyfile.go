package queue

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// hashSuffixLen is the number of hex characters of the key hash kept in
// the file name. 40 bits is far beyond what a handful of priority and
// slot keys per crawl could ever collide on.
const hashSuffixLen = 10

// PathSafe converts an arbitrary queue key (a priority number, a slot
// name, or a slot/priority path) into a filesystem-safe file name.
//
// The result has two parts: a lossy ASCII transliteration of the key,
// kept so operators can tell at a glance which bucket a file belongs
// to, and a short content-hash suffix that restores uniqueness after
// the lossy step. Distinct keys therefore never map to the same name
// even when their transliterations coincide.
func PathSafe(key string) string {
	// Decompose accented characters and drop the combining marks, so
	// "café.example" transliterates to "cafe_example" rather than
	// degrading entirely to underscores.
	decomposer := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	flattened, _, err := transform.String(decomposer, key)
	if err != nil {
		flattened = key
	}

	var b strings.Builder
	b.Grow(len(flattened) + 1 + hashSuffixLen)
	for _, r := range flattened {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	sum := sha3.Sum224([]byte(key))
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString(sum[:])[:hashSuffixLen])

	return b.String()
}
