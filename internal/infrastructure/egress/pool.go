// Package egress picks the outbound proxy a source adapter routes through.
package egress

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Policy selects how a proxy is chosen from the pool.
type Policy string

const (
	PolicyRandom Policy = "random"
	PolicyHash   Policy = "hash"
)

// ParsePolicy accepts "random" and "hash". Empty means random.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyRandom:
		return PolicyRandom, nil
	case PolicyHash:
		return PolicyHash, nil
	}
	return "", fmt.Errorf("unknown egress policy %q", s)
}

// Pool is a fixed list of proxy addresses. It is safe for concurrent use.
type Pool struct {
	proxies    []string
	policy     Policy
	defaultKey string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPool builds a pool. Blank entries are dropped. A zero seed seeds from the clock.
func NewPool(policy Policy, proxies []string, seed uint64) *Pool {
	cleaned := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	host, _ := os.Hostname()
	return &Pool{
		proxies:    cleaned,
		policy:     policy,
		defaultKey: host,
		rng:        rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Len reports the number of proxies.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// Next picks a proxy with the default key. It returns "" for an empty pool.
func (p *Pool) Next() string {
	return p.Pick("")
}

// Pick chooses a proxy for key. Under the random policy the key is ignored.
// Under the hash policy an empty key falls back to the host name.
func (p *Pool) Pick(key string) string {
	if p.Len() == 0 {
		return ""
	}
	if p.policy == PolicyHash {
		if key == "" {
			key = p.defaultKey
		}
		return p.proxies[HashIndex(key, len(p.proxies))]
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proxies[p.rng.IntN(len(p.proxies))]
}

// ProxyURL picks a proxy for key and parses it. Addresses without a scheme are treated as http.
// A nil URL with a nil error means the pool is empty.
func (p *Pool) ProxyURL(key string) (*url.URL, error) {
	addr := p.Pick(key)
	if addr == "" {
		return nil, nil
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %s: %w", addr, err)
	}
	return u, nil
}

// HashIndex maps key onto [0, n) with FNV-32a.
func HashIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
