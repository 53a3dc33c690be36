package tutoring

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*Request
	failInc  bool
}

func newMemoryRepo(reqs ...*Request) *memoryRepo {
	m := &memoryRepo{requests: map[uuid.UUID]*Request{}}
	for _, r := range reqs {
		m.requests[r.ID] = r
	}
	return m
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRepo) IncrementViewCount(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInc {
		return errors.New("db down")
	}
	r, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	r.ViewCount.Int64++
	r.ViewCount.Valid = true
	return nil
}

func (m *memoryRepo) views(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].ViewCount.Int64
}

type setDedup struct {
	seen map[string]bool
	err  error
}

func (d *setDedup) FirstView(_ context.Context, viewerKey string, requestID uuid.UUID) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	key := viewKey(viewerKey, requestID)
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func TestViewCountsOncePerViewer(t *testing.T) {
	req := &Request{ID: uuid.New(), StudentID: uuid.New()}
	repo := newMemoryRepo(req)
	svc := NewService(repo, &setDedup{seen: map[string]bool{}})
	ctx := context.Background()
	viewer := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.View(ctx, req.ID, viewer, viewer.String()); err != nil {
			t.Fatalf("view failed: %v", err)
		}
	}
	got, err := svc.View(ctx, req.ID, uuid.Nil, "10.0.0.1")
	if err != nil {
		t.Fatalf("anonymous view failed: %v", err)
	}

	if repo.views(req.ID) != 2 {
		t.Fatalf("expected 2 distinct views, got %d", repo.views(req.ID))
	}
	if got.Views() != 2 {
		t.Fatalf("returned request should reflect new count, got %d", got.Views())
	}
}

func TestViewByOwnerIsNotCounted(t *testing.T) {
	owner := uuid.New()
	req := &Request{ID: uuid.New(), StudentID: owner}
	repo := newMemoryRepo(req)
	svc := NewService(repo, nil)

	if _, err := svc.View(context.Background(), req.ID, owner, owner.String()); err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if repo.views(req.ID) != 0 {
		t.Fatalf("owner view was counted")
	}
}

func TestViewSurvivesCounterFailures(t *testing.T) {
	req := &Request{ID: uuid.New(), StudentID: uuid.New()}
	repo := newMemoryRepo(req)

	svc := NewService(repo, &setDedup{err: errors.New("redis down")})
	if _, err := svc.View(context.Background(), req.ID, uuid.New(), "k"); err != nil {
		t.Fatalf("dedup failure must not fail the view: %v", err)
	}

	repo.failInc = true
	svc = NewService(repo, nil)
	if _, err := svc.View(context.Background(), req.ID, uuid.New(), "k"); err != nil {
		t.Fatalf("increment failure must not fail the view: %v", err)
	}
}

func TestViewUnknownRequest(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	if _, err := svc.View(context.Background(), uuid.New(), uuid.Nil, "k"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestNilRedisCounterAlwaysCounts(t *testing.T) {
	c := NewRedisViewCounter(nil, 0)
	ok, err := c.FirstView(context.Background(), "k", uuid.New())
	if err != nil || !ok {
		t.Fatalf("expected first view without redis, got %v %v", ok, err)
	}
}
