package reportcache

import (
	"testing"
	"time"

	"raidbench/internal/config"
	"raidbench/internal/wcl"

	"github.com/rs/zerolog"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	cfg := &config.Config{
		CacheTTLShort: 5 * time.Minute,
		CacheTTLLong:  180 * 24 * time.Hour,
	}
	c, err := NewInMemory(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func bundle(code string, endTime float64) *wcl.ReportBundle {
	b := &wcl.ReportBundle{Code: code, Title: "Night " + code, StartTime: endTime - 10_800_000, EndTime: endTime}
	b.Fights = []wcl.ReportFight{{ID: 1, EncounterID: 3001, Difficulty: 5, StartTime: 60_000, EndTime: 300_000}}
	return b
}

func TestCacheRoundTrip(t *testing.T) {
	c := testCache(t)

	got, err := c.Get("missing")
	if err != nil {
		t.Fatalf("get miss: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}

	endMs := float64(time.Now().Add(-48 * time.Hour).UnixMilli())
	if err := c.Set(bundle("AbC123", endMs)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err = c.Get("AbC123")
	if err != nil {
		t.Fatalf("get hit: %v", err)
	}
	if got == nil || got.Code != "AbC123" || got.Title != "Night AbC123" {
		t.Fatalf("unexpected bundle: %+v", got)
	}
	if len(got.Fights) != 1 || got.Fights[0].EncounterID != 3001 {
		t.Errorf("fights not round-tripped: %+v", got.Fights)
	}
}

func TestCacheTTLSelection(t *testing.T) {
	c := testCache(t)

	fresh := bundle("FRESH", float64(time.Now().Add(-1*time.Hour).UnixMilli()))
	closed := bundle("CLOSED", float64(time.Now().Add(-72*time.Hour).UnixMilli()))

	if ttl := c.ttlFor(fresh); ttl != c.cfg.CacheTTLShort {
		t.Errorf("fresh report ttl = %v, want %v", ttl, c.cfg.CacheTTLShort)
	}
	if ttl := c.ttlFor(closed); ttl != c.cfg.CacheTTLLong {
		t.Errorf("closed report ttl = %v, want %v", ttl, c.cfg.CacheTTLLong)
	}
}

func TestCacheFlush(t *testing.T) {
	c := testCache(t)

	endMs := float64(time.Now().UnixMilli())
	for _, code := range []string{"a1", "b2", "c3"} {
		if err := c.Set(bundle(code, endMs)); err != nil {
			t.Fatalf("set %s: %v", code, err)
		}
	}

	n, err := c.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 3 {
		t.Errorf("flushed %d entries, want 3", n)
	}

	got, err := c.Get("a1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("entry survived flush: %+v", got)
	}
}
