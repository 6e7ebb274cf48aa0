package ratelimiter

import "testing"

func TestAllow_WithinBurst(t *testing.T) {
	l := New(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("Expected request %d within burst to be allowed", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("Expected request beyond burst to be rejected")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New(1, 1)

	if !l.Allow("10.0.0.1") {
		t.Fatal("Expected first request to be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("Expected second request for same key to be rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Expected request for a different key to be allowed")
	}
}

func TestAllow_NilLimiterAllowsEverything(t *testing.T) {
	l := New(0, 0)

	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatal("Expected unlimited limiter to allow everything")
		}
	}
}
