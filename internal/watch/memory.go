package watch

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and the local dry-run
// command. It holds one mutex around all documents.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*Request
	seq  map[string]int
	next int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*Request),
		seq:  make(map[string]int),
	}
}

func (m *MemoryStore) Create(ctx context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[req.ID]; exists {
		return invalid("watch %s already exists", req.ID)
	}
	existing := make([]Request, 0, len(m.docs))
	for _, d := range m.docs {
		if d.UserID == req.UserID {
			existing = append(existing, *d)
		}
	}
	if err := CheckLimits(existing, req); err != nil {
		return err
	}

	m.docs[req.ID] = req.Clone()
	m.seq[req.ID] = m.next
	m.next++
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return d.Clone(), nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, f ListFilter) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Request
	for _, d := range m.docs {
		if d.UserID == userID && f.match(d) {
			out = append(out, *d.Clone())
		}
	}
	m.sortLocked(out)
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *MemoryStore) FetchActivePending(ctx context.Context) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Request
	for _, d := range m.docs {
		if d.Pending() {
			out = append(out, *d.Clone())
		}
	}
	m.sortLocked(out)
	return out, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id string, u StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if !d.Pending() {
		return ErrNotPending
	}
	d.IsActive = u.IsActive
	d.Status = u.Status
	d.StatusReason = u.StatusReason
	if u.LastCheckedAt != nil {
		t := *u.LastCheckedAt
		d.LastCheckedAt = &t
	}
	return nil
}

func (m *MemoryStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok || d.DeletedAt != nil {
		return &NotFoundError{ID: id}
	}
	if d.Status == StatusPending {
		return invalid("still pending")
	}
	d.IsActive = false
	d.DeletedAt = &at
	return nil
}

// sortLocked orders by CreatedAt ascending, insertion order breaking ties.
func (m *MemoryStore) sortLocked(rs []Request) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return m.seq[rs[i].ID] < m.seq[rs[j].ID]
	})
}
