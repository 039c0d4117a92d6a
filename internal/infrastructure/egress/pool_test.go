package egress

import "testing"

func TestPoolEmpty(t *testing.T) {
	t.Parallel()

	pool := NewPool(PolicyRandom, []string{"", "  "}, 1)
	if pool.Len() != 0 {
		t.Fatalf("expected empty pool, got %d", pool.Len())
	}
	if got := pool.Next(); got != "" {
		t.Fatalf("expected empty proxy, got %q", got)
	}
	u, err := pool.ProxyURL("x")
	if err != nil || u != nil {
		t.Fatalf("expected nil url and error, got %v %v", u, err)
	}

	var nilPool *Pool
	if nilPool.Len() != 0 {
		t.Fatal("nil pool should be empty")
	}
}

func TestPoolRandomStaysInPool(t *testing.T) {
	t.Parallel()

	proxies := []string{"123.45.67.89:8080", "98.76.54.32:3128"}
	pool := NewPool(PolicyRandom, proxies, 9)

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		seen[pool.Next()]++
	}
	for p := range seen {
		if p != proxies[0] && p != proxies[1] {
			t.Fatalf("unexpected proxy %q", p)
		}
	}
	if len(seen) != 2 {
		t.Fatalf("expected both proxies picked over 200 draws, got %v", seen)
	}
}

func TestPoolHashIsStable(t *testing.T) {
	t.Parallel()

	proxies := []string{"a:1", "b:2", "c:3", "d:4"}
	pool := NewPool(PolicyHash, proxies, 1)

	first := pool.Pick("linkedin")
	for i := 0; i < 10; i++ {
		if got := pool.Pick("linkedin"); got != first {
			t.Fatalf("hash pick changed: %s then %s", first, got)
		}
	}
	if want := proxies[HashIndex("linkedin", len(proxies))]; first != want {
		t.Fatalf("expected %s, got %s", want, first)
	}
	if pool.Next() != pool.Next() {
		t.Fatal("default key pick should be stable")
	}
}

func TestProxyURLAddsScheme(t *testing.T) {
	t.Parallel()

	pool := NewPool(PolicyHash, []string{"10.0.0.1:3128"}, 1)
	u, err := pool.ProxyURL("")
	if err != nil {
		t.Fatalf("ProxyURL error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "10.0.0.1:3128" {
		t.Fatalf("unexpected url %s", u)
	}

	pool = NewPool(PolicyHash, []string{"socks5://10.0.0.2:1080"}, 1)
	u, err = pool.ProxyURL("")
	if err != nil {
		t.Fatalf("ProxyURL error: %v", err)
	}
	if u.Scheme != "socks5" {
		t.Fatalf("expected socks5 scheme, got %s", u.Scheme)
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	cases := map[string]Policy{"": PolicyRandom, "random": PolicyRandom, " HASH ": PolicyHash}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("round-robin"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
