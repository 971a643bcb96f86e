package groupcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/wafleet/wafleet/internal/transport"
)

func TestGetMiss(t *testing.T) {
	c := New(10, time.Hour)
	if got := c.Get("g1@g.us"); got != nil {
		t.Errorf("Get on empty cache = %+v, want nil", got)
	}
}

func TestSetGet(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("g1@g.us", &transport.GroupMetadata{JID: "g1@g.us", Subject: "Ops"})

	got := c.Get("g1@g.us")
	if got == nil || got.Subject != "Ops" {
		t.Errorf("Get = %+v, want subject Ops", got)
	}
}

func TestNilIsNotCached(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("g1@g.us", nil)
	if c.Len() != 0 {
		t.Error("nil metadata must not be cached")
	}
}

func TestCapacityEviction(t *testing.T) {
	c := New(3, time.Hour)
	for i := 0; i < 5; i++ {
		jid := fmt.Sprintf("g%d@g.us", i)
		c.Set(jid, &transport.GroupMetadata{JID: jid})
	}
	if c.Len() != 3 {
		t.Errorf("len = %d, want 3", c.Len())
	}
	// Oldest-inserted entries go first.
	if c.Get("g0@g.us") != nil {
		t.Error("g0 should have been evicted")
	}
	if c.Get("g4@g.us") == nil {
		t.Error("g4 should still be cached")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	c.Set("g1@g.us", &transport.GroupMetadata{JID: "g1@g.us"})

	time.Sleep(50 * time.Millisecond)
	if got := c.Get("g1@g.us"); got != nil {
		t.Errorf("Get after TTL = %+v, want nil", got)
	}
}
