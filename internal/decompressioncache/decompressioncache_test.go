package decompressioncache

import (
	"bytes"
	"testing"
)

func TestCacheHotTierOnly(t *testing.T) {
	c, err := Open("", 16)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := Key(42, 1000)
	if _, ok := c.Get(key); ok {
		t.Fatal("Get on empty cache returned a hit")
	}

	want := []byte("decoded chunk contents")
	c.Put(key, want)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get after Put returned a miss")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get() = %q, want %q", got, want)
	}
}

func TestCachePersistentTierSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	c1, err := Open(dir, 16)
	if err != nil {
		t.Fatal(err)
	}

	key := Key(7, 2048)
	want := []byte("persisted across process boundary")
	c1.Put(key, want)
	if err := c1.Close(); err != nil {
		t.Fatal(err)
	}

	c2, err := Open(dir, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	got, ok := c2.Get(key)
	if !ok {
		t.Fatal("Get on reopened cache returned a miss")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get() = %q, want %q", got, want)
	}
}

func TestKeyIsStableAndDistinguishesOffsets(t *testing.T) {
	a := Key(1, 0)
	b := Key(1, 1)
	c := Key(2, 0)
	if a == b {
		t.Fatal("Key gave the same hash for different offsets")
	}
	if a == c {
		t.Fatal("Key gave the same hash for different stream IDs")
	}
	if Key(1, 0) != a {
		t.Fatal("Key is not deterministic")
	}
}
