package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"studysphere-tracker/internal/domain"
	"studysphere-tracker/internal/infra/memory"
)

func TestPassageIndexCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		PassageLoader: memory.NewStaticPassageLoader(samplePassages()),
	}
	index := NewPassageIndex(newClient(mr), loader, "", time.Minute, nil)

	passages, err := index.Passages(context.Background())
	if err != nil {
		t.Fatalf("passages: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if got := mr.HGet("passages:subjects", "p-bio-1"); got != "biology" {
		t.Fatalf("expected cached subject biology, got %q", got)
	}
	if mr.TTL("passages:subjects") <= 0 {
		t.Fatalf("expected ttl on cached index")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := index.Passages(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	subjects := map[string]string{}
	for _, p := range cached {
		subjects[p.ID] = p.Subject
	}
	if subjects["p-phy-1"] != "physics" {
		t.Fatalf("expected physics from cache, got %+v", cached)
	}

	if err := index.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = index.Passages(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestPassageIndexDoesNotCacheEmptyCatalog(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{PassageLoader: memory.NewStaticPassageLoader(nil)}
	index := NewPassageIndex(newClient(mr), loader, "x:", time.Minute, nil)

	if _, err := index.Passages(context.Background()); err != nil {
		t.Fatalf("passages: %v", err)
	}
	if mr.Exists("x:passages:subjects") {
		t.Fatalf("expected nothing cached for empty catalog")
	}
}

func TestPassageIndexServesLoaderWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	loader := &countingLoader{PassageLoader: memory.NewStaticPassageLoader(samplePassages())}
	index := NewPassageIndex(client, loader, "", time.Minute, zap.New(core))

	passages, err := index.Passages(context.Background())
	if err != nil {
		t.Fatalf("passages: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected loader passages, got %d", len(passages))
	}
	if n := logs.FilterMessage("passage index fill failed").Len(); n != 1 {
		t.Fatalf("expected one fill failure logged, got %d", n)
	}
}

type countingLoader struct {
	memory.PassageLoader
	calls int
}

func (l *countingLoader) LoadPassages(ctx context.Context) ([]domain.Passage, error) {
	l.calls++
	return l.PassageLoader.LoadPassages(ctx)
}

func samplePassages() []domain.Passage {
	return []domain.Passage{
		{ID: "p-bio-1", Subject: "biology", Title: "Cell membranes"},
		{ID: "p-phy-1", Subject: "physics", Title: "Projectile motion"},
	}
}
