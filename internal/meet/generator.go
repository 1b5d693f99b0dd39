// Package meet produces meeting references for online sessions. Links are
// formatted locally; no meeting is provisioned with any provider.
package meet

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

// DefaultDomain is the host used when none is configured.
const DefaultDomain = "meet.google.com"

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Pattern matches any link produced by a Generator.
var Pattern = regexp.MustCompile(`^https://meet\.[a-z0-9.-]+/[a-z]{3}-[a-z]{4}-[a-z]{3}$`)

// Generator builds https://<domain>/xxx-xxxx-xxx links.
type Generator struct {
	domain string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a generator for domain, seeded from the runtime's
// random source. Domains that do not start with "meet." fall back to DefaultDomain.
func NewGenerator(domain string) *Generator {
	return NewGeneratorWithRand(domain, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewGeneratorWithRand allows tests to inject a deterministic source.
func NewGeneratorWithRand(domain string, rnd *rand.Rand) *Generator {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimSuffix(domain, "/")
	if !strings.HasPrefix(domain, "meet.") {
		domain = DefaultDomain
	}
	return &Generator{domain: domain, rnd: rnd}
}

// Domain returns the configured host.
func (g *Generator) Domain() string {
	return g.domain
}

// Generate returns a fresh link. Collisions are not checked.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(len("https://") + len(g.domain) + 13)
	b.WriteString("https://")
	b.WriteString(g.domain)
	b.WriteByte('/')
	g.segment(&b, 3)
	b.WriteByte('-')
	g.segment(&b, 4)
	b.WriteByte('-')
	g.segment(&b, 3)
	return b.String()
}

func (g *Generator) segment(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.rnd.IntN(len(alphabet))])
	}
}
