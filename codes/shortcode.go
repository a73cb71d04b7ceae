package codes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Alphabet is the short-code symbol set: digits and lower-case letters without
// i, l, o and u.
const Alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// ShortCodeLength is the maximum number of symbols in a short code.
const ShortCodeLength = 7

const digestSize = 5

// ErrShortCodeCollision is returned when two canonical codes share a short code.
var ErrShortCodeCollision = errors.New("short code collision")

// ShortCode hashes a canonical code with SHAKE256, keeps 40 bits and encodes
// them over Alphabet, most significant symbol first, truncated to
// ShortCodeLength symbols.
func ShortCode(canonical string) string {
	digest := make([]byte, digestSize)
	sha3.ShakeSum256(digest, []byte(canonical))

	var buf [8]byte
	copy(buf[8-digestSize:], digest)
	return encode(binary.BigEndian.Uint64(buf[:]))
}

func encode(n uint64) string {
	if n == 0 {
		return string(Alphabet[0])
	}

	base := uint64(len(Alphabet))
	var symbols []byte
	for n > 0 {
		symbols = append(symbols, Alphabet[n%base])
		n /= base
	}
	for i, j := 0, len(symbols)-1; i < j; i, j = i+1, j-1 {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	}

	if len(symbols) > ShortCodeLength {
		symbols = symbols[:ShortCodeLength]
	}
	return string(symbols)
}

// IsShortCode reports whether s could have been produced by ShortCode.
func IsShortCode(s string) bool {
	if s == "" || len(s) > ShortCodeLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

// Collision describes two canonical codes that encode to the same short code.
type Collision struct {
	ShortCode string
	Existing  string
	Incoming  string
}

func (c Collision) Error() string {
	return fmt.Sprintf("%s: %q and %q share short code %s", ErrShortCodeCollision, c.Existing, c.Incoming, c.ShortCode)
}

func (c Collision) Unwrap() error {
	return ErrShortCodeCollision
}

// CollisionIndex remembers which canonical code produced each short code.
type CollisionIndex struct {
	seen       map[string]string
	collisions []Collision
}

// NewCollisionIndex creates an empty index.
func NewCollisionIndex() *CollisionIndex {
	return &CollisionIndex{seen: make(map[string]string)}
}

// Add records a mapping. It returns a non-nil collision when short was already
// produced by a different canonical code.
func (ci *CollisionIndex) Add(short, canonical string) *Collision {
	existing, ok := ci.seen[short]
	if !ok {
		ci.seen[short] = canonical
		return nil
	}
	if existing == canonical {
		return nil
	}

	c := Collision{ShortCode: short, Existing: existing, Incoming: canonical}
	for _, prev := range ci.collisions {
		if prev == c {
			return nil
		}
	}
	ci.collisions = append(ci.collisions, c)
	return &c
}

// Collisions returns every distinct collision seen, ordered by short code.
func (ci *CollisionIndex) Collisions() []Collision {
	out := make([]Collision, len(ci.collisions))
	copy(out, ci.collisions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ShortCode < out[j].ShortCode })
	return out
}
