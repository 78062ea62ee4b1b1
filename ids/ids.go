// Package ids generates record identifiers.
//
// An identifier is a time based token of BaseLength lowercase hex
// characters: eight for the Unix seconds and five for the microseconds.
// A generator never hands out the same token twice, even when called
// repeatedly within one microsecond, but tokens are not checked against
// existing records.
//
// A prefix is prepended verbatim. With extra entropy enabled a random
// "d.dddddddd" suffix of EntropyLength characters is appended.
package ids

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// BaseLength is the length of an identifier without prefix or entropy.
	BaseLength = 13
	// EntropyLength is the length of the extra entropy suffix.
	EntropyLength = 10
)

// Generator produces identifiers. It is safe for concurrent use.
type Generator struct {
	prefix      string
	moreEntropy bool
	now         func() time.Time
	random      func() uuid.UUID

	mu   sync.Mutex
	last int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRandom replaces the source of extra entropy.
func WithRandom(fn func() uuid.UUID) Option {
	return func(g *Generator) {
		g.random = fn
	}
}

// NewGenerator returns a generator for the given prefix and entropy flag.
func NewGenerator(prefix string, moreEntropy bool, opts ...Option) *Generator {
	g := &Generator{
		prefix:      prefix,
		moreEntropy: moreEntropy,
		now:         time.Now,
		random:      uuid.New,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Length returns the length of every identifier the generator produces.
func (g *Generator) Length() int {
	n := len(g.prefix) + BaseLength
	if g.moreEntropy {
		n += EntropyLength
	}
	return n
}

// Next returns a fresh identifier.
func (g *Generator) Next() string {
	micros := g.tick()
	id := fmt.Sprintf("%s%08x%05x", g.prefix, micros/1e6, micros%1e6)
	if g.moreEntropy {
		id += g.entropy()
	}
	return id
}

// tick returns the current time in microseconds, bumped past the last
// value handed out.
func (g *Generator) tick() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	micros := g.now().UnixMicro()
	if micros <= g.last {
		micros = g.last + 1
	}
	g.last = micros
	return micros
}

func (g *Generator) entropy() string {
	u := g.random()
	n := binary.BigEndian.Uint64(u[:8])
	return fmt.Sprintf("%d.%08d", n%10, (n/10)%100000000)
}
