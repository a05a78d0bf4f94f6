package ratelimit

import (
	"testing"
	"time"
)

func TestHostLimiter_PacesSameHost(t *testing.T) {
	hl := NewHostLimiter(10, 1)

	if !hl.Allow("http://img.example.com/a.jpg") {
		t.Fatal("First request should be allowed immediately")
	}
	if hl.Allow("http://img.example.com/b.jpg") {
		t.Error("Second immediate request on same host should be throttled")
	}

	time.Sleep(120 * time.Millisecond)
	if !hl.Allow("http://img.example.com/c.jpg") {
		t.Error("Request after refill window should be allowed")
	}
}

func TestHostLimiter_HostsIndependent(t *testing.T) {
	hl := NewHostLimiter(1, 1)

	if !hl.Allow("http://a.example.com/x") {
		t.Fatal("First host should be allowed")
	}
	if !hl.Allow("http://b.example.com/x") {
		t.Error("Different host should have its own bucket")
	}
}

func TestHostLimiter_InvalidURLPasses(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	if !hl.Allow("::not a url::") {
		t.Error("Unparseable URL should pass through the limiter")
	}
}
