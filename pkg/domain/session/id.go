package session

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// IDAlphabet excludes ambiguous characters (0/O, 1/I/L) so the code stays
// readable when typed off a screen. Ids are short-lived pairing tokens, not
// credentials; math/rand is deliberate and sufficient here.
const IDAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const DefaultIDLength = 6

// IDGenerator produces session ids by uniform sampling over IDAlphabet.
type IDGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	length int
}

func NewIDGenerator(length int) *IDGenerator {
	if length <= 0 {
		length = DefaultIDLength
	}
	return &IDGenerator{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		length: length,
	}
}

func (g *IDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(IDAlphabet[g.rng.Intn(len(IDAlphabet))])
	}
	return b.String()
}
