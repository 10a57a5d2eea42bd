package optimize

import (
	"fmt"
	"testing"
	"unsafe"
)

func TestStringInterner(t *testing.T) {
	interner := NewStringInterner(100)

	// Test basic interning
	s1 := interner.Intern("hello")
	s2 := interner.Intern("hello")

	// Should return the same pointer
	if unsafe.StringData(s1) != unsafe.StringData(s2) {
		t.Errorf("Expected interned strings to have same pointer")
	}

	// Test stats
	stats := interner.Stats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}

func TestStringInternerBytes(t *testing.T) {
	interner := NewStringInterner(100)

	b1 := []byte("hello")
	b2 := []byte("hello")

	s1 := interner.InternBytes(b1)
	s2 := interner.InternBytes(b2)

	// Should return the same pointer
	if unsafe.StringData(s1) != unsafe.StringData(s2) {
		t.Errorf("Expected interned strings to have same pointer")
	}
}

func TestStringInternerEviction(t *testing.T) {
	interner := NewStringInterner(10)

	// Fill beyond capacity
	for i := 0; i < 15; i++ {
		interner.Intern(fmt.Sprintf("string-%d", i))
	}

	stats := interner.Stats()
	if stats.Evictions == 0 {
		t.Errorf("Expected some evictions, got 0")
	}

	size := interner.Size()
	if size > 10 {
		t.Errorf("Expected size <= 10 after eviction, got %d", size)
	}
}

func TestStringInternerClear(t *testing.T) {
	interner := NewStringInterner(100)

	interner.Intern("hello")
	interner.Intern("world")

	if interner.Size() != 2 {
		t.Errorf("Expected size 2, got %d", interner.Size())
	}

	interner.Clear()

	if interner.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", interner.Size())
	}
}

func TestStringInternerContains(t *testing.T) {
	interner := NewStringInterner(100)

	interner.Intern("hello")

	if !interner.Contains("hello") {
		t.Errorf("Expected 'hello' to be interned")
	}

	if interner.Contains("world") {
		t.Errorf("Expected 'world' to not be interned")
	}
}

// Benchmarks
func BenchmarkStringIntern(b *testing.B) {
	interner := NewStringInterner(1000)
	hosts := []string{
		"10.0.0.1:51000",
		"10.0.0.2:51001",
		"10.0.0.3:51002",
		"10.0.0.4:51003",
		"10.0.0.5:51004",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interner.Intern(hosts[i%len(hosts)])
	}
}

func BenchmarkStringInternMiss(b *testing.B) {
	interner := NewStringInterner(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interner.Intern(fmt.Sprintf("10.0.0.%d:51000", i%250))
	}
}

func BenchmarkStringInternBytes(b *testing.B) {
	interner := NewStringInterner(1000)
	hostBytes := [][]byte{
		[]byte("10.0.0.1:51000"),
		[]byte("10.0.0.2:51001"),
		[]byte("10.0.0.3:51002"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interner.InternBytes(hostBytes[i%len(hostBytes)])
	}
}

// Concurrent benchmarks
func BenchmarkStringInternConcurrent(b *testing.B) {
	interner := NewStringInterner(1000)
	hosts := []string{
		"10.0.0.1:51000",
		"10.0.0.2:51001",
		"10.0.0.3:51002",
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			interner.Intern(hosts[i%len(hosts)])
			i++
		}
	})
}
