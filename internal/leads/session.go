package leads

import (
	"crypto/rand"
	"io"
	"strconv"
	"time"
)

const (
	sessionPrefix    = "lead_"
	sessionSuffixLen = 7
	base36Alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// SessionGenerator produces lead session tokens of the form
// lead_<unix-ms>_<7 base36 chars>.
type SessionGenerator struct {
	now    func() time.Time
	random io.Reader
}

// NewSessionGenerator returns a generator backed by the wall clock and crypto/rand.
func NewSessionGenerator() *SessionGenerator {
	return &SessionGenerator{now: time.Now, random: rand.Reader}
}

// NewSessionGeneratorWith lets tests pin the clock and entropy source.
func NewSessionGeneratorWith(now func() time.Time, random io.Reader) *SessionGenerator {
	g := NewSessionGenerator()
	if now != nil {
		g.now = now
	}
	if random != nil {
		g.random = random
	}
	return g
}

// Next returns a new session token.
func (g *SessionGenerator) Next() (string, error) {
	buf := make([]byte, sessionSuffixLen)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", err
	}
	suffix := make([]byte, sessionSuffixLen)
	for i, b := range buf {
		suffix[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return sessionPrefix + strconv.FormatInt(g.now().UnixMilli(), 10) + "_" + string(suffix), nil
}
