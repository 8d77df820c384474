package oamap

import (
	"hash/fnv"
	"testing"

	"github.com/icrowley/fake"
)

func TestFNV1a(t *testing.T) {
	vectors := map[string]Digest{
		"":       0xcbf29ce484222325,
		"a":      0xaf63dc4c8601ec8c,
		"foobar": 0x85944171f73967e8,
	}
	for key, want := range vectors {
		if got := FNV1a(key); got != want {
			t.Fatalf("FNV1a(%q) = %#x, want %#x", key, got, want)
		}
	}
	fake.Seed(7)
	for i := 0; i < 200; i++ {
		key := fake.Sentence()
		h := fnv.New64a()
		h.Write([]byte(key))
		if got, want := FNV1a(key), Digest(h.Sum64()); got != want {
			t.Fatalf("FNV1a(%q) = %#x, hash/fnv says %#x", key, got, want)
		}
	}
}

func TestXXHash(t *testing.T) {
	if got := XXHash(""); got != 0xef46db3751d8e999 {
		t.Fatalf("XXHash(\"\") = %#x", got)
	}
	if XXHash("apples") == XXHash("pears") {
		t.Fatalf("XXHash collides on trivial keys")
	}
}

func TestHasherByName(t *testing.T) {
	for _, name := range []string{"fnv1a", "xxhash"} {
		h, ok := HasherByName(name)
		if !ok || h == nil {
			t.Fatalf("HasherByName(%q) not found", name)
		}
	}
	h, _ := HasherByName("xxhash")
	if h("key") != XXHash("key") {
		t.Fatalf("xxhash resolves to the wrong function")
	}
	if _, ok := HasherByName("md5"); ok {
		t.Fatalf("HasherByName(md5) found")
	}
}
