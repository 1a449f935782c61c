package querycache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/travel-booking/internal/config"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *MemoryBackend) {
	t.Helper()
	b := NewMemoryBackend()
	cfg := config.QueryCacheConfig{StaleTime: time.Minute, GCTime: 5 * time.Minute, ReadRetries: 1}
	return New(b, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), b
}

func TestFetchServesFreshEntries(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32
	load := func(context.Context) ([]item, error) {
		atomic.AddInt32(&calls, 1)
		return []item{{ID: "a", Name: "Alpha"}}, nil
	}
	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, Packages(), load)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Alpha" {
			t.Fatalf("Fetch = %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}
}

func TestFetchReloadsAfterStaleTime(t *testing.T) {
	c, b := newTestCache(t)
	ctx := context.Background()
	clock := time.Now()
	c.now = func() time.Time { return clock }
	b.now = func() time.Time { return clock }

	var calls int32
	load := func(context.Context) (int, error) { return int(atomic.AddInt32(&calls, 1)), nil }
	if v, _ := Fetch(ctx, c, AdminStats(), load); v != 1 {
		t.Fatalf("first = %d", v)
	}
	clock = clock.Add(30 * time.Second)
	if v, _ := Fetch(ctx, c, AdminStats(), load); v != 1 {
		t.Fatalf("within stale time = %d, want cached 1", v)
	}
	clock = clock.Add(31 * time.Second)
	if v, _ := Fetch(ctx, c, AdminStats(), load); v != 2 {
		t.Fatalf("after stale time = %d, want 2", v)
	}
}

func TestFetchDeduplicatesConcurrentLoads(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := Fetch(ctx, c, Hotels(), load); err != nil || v != "ok" {
				t.Errorf("Fetch = %q, %v", v, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}
}

func TestFetchRetriesOnceAndNeverCachesErrors(t *testing.T) {
	c, b := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var calls int32
	failing := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	}
	if _, err := Fetch(ctx, c, Airlines(), failing); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 2 {
		t.Fatalf("attempts = %d, want 2", calls)
	}
	if b.Len() != 0 {
		t.Fatalf("error result was cached")
	}

	calls = 0
	flaky := func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", boom
		}
		return "second", nil
	}
	if v, err := Fetch(ctx, c, Airlines(), flaky); err != nil || v != "second" {
		t.Fatalf("flaky = %q, %v", v, err)
	}
}

func TestInvalidateForcesReloadButKeepsData(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	n := 0
	load := func(context.Context) (int, error) { n++; return n, nil }

	if _, err := Fetch(ctx, c, Package("p1"), load); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := c.Invalidate(ctx, Package("p1")); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if v, ok, err := Peek[int](ctx, c, Package("p1")); err != nil || !ok || v != 1 {
		t.Fatalf("Peek after invalidate = %d, %v, %v", v, ok, err)
	}
	if v, _ := Fetch(ctx, c, Package("p1"), load); v != 2 {
		t.Fatalf("Fetch after invalidate = %d, want 2", v)
	}
}

func TestApplyDeleteStrikesBeforeRefetch(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	list := []item{{ID: "r1"}, {ID: "r2"}}
	if _, err := Fetch(ctx, c, Reservations("u1"), func(context.Context) ([]item, error) { return list, nil }); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// refetch fails: the struck list must still hide r1
	c.Register(KindReservations, func(context.Context, string) (any, error) { return nil, errors.New("offline") })
	c.Apply(ctx, ReservationDelete, Target{ID: "r1", OwnerID: "u1"})

	got, ok, err := Peek[[]item](ctx, c, Reservations("u1"))
	if err != nil || !ok {
		t.Fatalf("Peek = %v, %v", ok, err)
	}
	if len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("list after delete = %+v, want only r2", got)
	}

	// refetch succeeds: the list is replaced and fresh again
	c.Register(KindReservations, func(_ context.Context, uid string) (any, error) {
		if uid != "u1" {
			t.Errorf("refetch arg = %q", uid)
		}
		return []item{{ID: "r2", Name: "server"}}, nil
	})
	c.Apply(ctx, ReservationDelete, Target{ID: "r1", OwnerID: "u1"})
	fresh, err := Fetch(ctx, c, Reservations("u1"), func(context.Context) ([]item, error) {
		t.Error("loader called although refetch stored a fresh value")
		return nil, nil
	})
	if err != nil || len(fresh) != 1 || fresh[0].Name != "server" {
		t.Fatalf("after refetch = %+v, %v", fresh, err)
	}
}

func TestApplyLeavesUnrelatedKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (int, error) { calls++; return calls, nil }
	if _, err := Fetch(ctx, c, Packages(), load); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	c.Apply(ctx, ReservationPayment, Target{ID: "r1", OwnerID: "u1", PackageID: "p1"})
	if v, _ := Fetch(ctx, c, Packages(), load); v != 1 {
		t.Fatalf("packages reloaded after payment update")
	}
}

func TestDropUser(t *testing.T) {
	c, b := newTestCache(t)
	ctx := context.Background()
	for _, k := range []Key{Profile("u1"), Reservations("u1"), Profile("u2")} {
		if _, err := Fetch(ctx, c, k, func(context.Context) (string, error) { return "v", nil }); err != nil {
			t.Fatalf("Fetch %s: %v", k, err)
		}
	}
	if err := c.DropUser(ctx, "u1"); err != nil {
		t.Fatalf("DropUser: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("entries left = %d, want 1", b.Len())
	}
	if _, ok, _ := Peek[string](ctx, c, Profile("u2")); !ok {
		t.Fatal("other user's profile dropped")
	}
}

func TestMemoryBackendExpiry(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	clock := time.Now()
	b.now = func() time.Time { return clock }
	_ = b.Set(ctx, "a", []byte("1"), time.Second)
	_ = b.Set(ctx, "b", []byte("2"), time.Hour)
	clock = clock.Add(2 * time.Second)
	if _, ok, _ := b.Get(ctx, "a"); ok {
		t.Fatal("expired entry served")
	}
	if n := b.Sweep(); n != 0 {
		t.Fatalf("Sweep = %d, want 0 (a already dropped on read)", n)
	}
	if v, ok, _ := b.Get(ctx, "b"); !ok || string(v) != "2" {
		t.Fatalf("b = %q, %v", v, ok)
	}
}

// pausingBackend blocks the first Set of key until release is closed.
type pausingBackend struct {
	*MemoryBackend
	key     string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *pausingBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if key == p.key {
		first := false
		p.once.Do(func() { first = true })
		if first {
			close(p.entered)
			<-p.release
		}
	}
	return p.MemoryBackend.Set(ctx, key, val, ttl)
}

func TestLoadStoredDuringDeleteDoesNotResurrectRow(t *testing.T) {
	b := &pausingBackend{
		MemoryBackend: NewMemoryBackend(),
		key:           string(Reservations("u1")),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	cfg := config.QueryCacheConfig{StaleTime: time.Minute, GCTime: 5 * time.Minute}
	c := New(b, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.Register(KindReservations, func(context.Context, string) (any, error) { return []item{}, nil })
	ctx := context.Background()

	fetched := make(chan struct{})
	go func() {
		defer close(fetched)
		_, _ = Fetch(ctx, c, Reservations("u1"), func(context.Context) ([]item, error) {
			return []item{{ID: "r1"}}, nil
		})
	}()
	<-b.entered

	applied := make(chan struct{})
	go func() {
		defer close(applied)
		c.Apply(ctx, ReservationDelete, Target{ID: "r1", OwnerID: "u1"})
	}()
	select {
	case <-applied:
		t.Fatal("Apply finished while a write of the owner list was in progress")
	case <-time.After(50 * time.Millisecond):
	}
	close(b.release)
	<-fetched
	<-applied

	got, err := Fetch(ctx, c, Reservations("u1"), func(context.Context) ([]item, error) {
		t.Error("loader called although the refetch stored a fresh value")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("owner list after delete = %+v, want empty", got)
	}
}

func TestInvalidatingOtherKeyKeepsLoadCached(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32
	load := func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			if err := c.Invalidate(ctx, AdminStats()); err != nil {
				t.Errorf("Invalidate: %v", err)
			}
		}
		return "v", nil
	}
	for i := 0; i < 2; i++ {
		if _, err := Fetch(ctx, c, Packages(), load); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}
}

func TestInvalidatingSameKeyDuringLoadSkipsStore(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32
	load := func(context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			if err := c.Invalidate(ctx, Packages()); err != nil {
				t.Errorf("Invalidate: %v", err)
			}
		}
		return int(n), nil
	}
	if v, _ := Fetch(ctx, c, Packages(), load); v != 1 {
		t.Fatalf("first = %d, want 1", v)
	}
	if v, _ := Fetch(ctx, c, Packages(), load); v != 2 {
		t.Fatalf("second = %d, want 2 (first load predates the invalidation)", v)
	}
}
