package store

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Remote used by tests in place of a live MongoDB,
// the same way the mock-backed suites elsewhere avoid a running Redis.
// Snapshots are delivered synchronously from the mutating goroutine, so a
// test observes every delivery in order.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]map[string]any // collection -> id -> fields
	subs map[*memorySub]struct{}

	// ReadErr, when set, is returned by every ReadOnce call; WriteErr by
	// every Write/UpdateFields/Delete. Test hooks.
	ReadErr  error
	WriteErr error
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]map[string]map[string]any),
		subs: make(map[*memorySub]struct{}),
	}
}

type memorySub struct {
	store      *Memory
	collection string
	query      Query
	onSnapshot func([]Document)
	onError    func(error)
	closed     bool
}

func (s *memorySub) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.closed = true
	delete(s.store.subs, s)
	return nil
}

func (m *Memory) Subscribe(_ context.Context, collection string, q Query, onSnapshot func([]Document), onError func(error)) (Subscription, error) {
	m.mu.Lock()
	sub := &memorySub{store: m, collection: collection, query: q, onSnapshot: onSnapshot, onError: onError}
	m.subs[sub] = struct{}{}
	docs := m.queryLocked(collection, q)
	m.mu.Unlock()
	onSnapshot(docs)
	return sub, nil
}

func (m *Memory) ReadOnce(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return Document{}, m.ReadErr
	}
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

func (m *Memory) QueryOnce(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(collection, q), nil
}

func (m *Memory) Write(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	if m.WriteErr != nil {
		m.mu.Unlock()
		return m.WriteErr
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]map[string]any)
	}
	m.data[collection][id] = copyFields(fields)
	m.notifyAndUnlock(collection)
	return nil
}

func (m *Memory) UpdateFields(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	if m.WriteErr != nil {
		m.mu.Unlock()
		return m.WriteErr
	}
	doc, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrWriteFailed, collection, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.notifyAndUnlock(collection)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	if m.WriteErr != nil {
		m.mu.Unlock()
		return m.WriteErr
	}
	delete(m.data[collection], id)
	m.notifyAndUnlock(collection)
	return nil
}

// FailSubscriptions delivers a sync-lost failure to every live subscription
// on the collection and tears them down, simulating a dropped connection.
func (m *Memory) FailSubscriptions(collection string, cause error) {
	m.mu.Lock()
	var failed []*memorySub
	for sub := range m.subs {
		if sub.collection == collection {
			sub.closed = true
			delete(m.subs, sub)
			failed = append(failed, sub)
		}
	}
	m.mu.Unlock()
	for _, sub := range failed {
		sub.onError(fmt.Errorf("%w: %v", ErrSyncLost, cause))
	}
}

// notifyAndUnlock re-runs each matching subscription query and delivers the
// full result. Called with m.mu held; releases it before delivering so a
// callback may call back into the store.
func (m *Memory) notifyAndUnlock(collection string) {
	type delivery struct {
		sub  *memorySub
		docs []Document
	}
	var pending []delivery
	for sub := range m.subs {
		if sub.collection == collection && !sub.closed {
			pending = append(pending, delivery{sub, m.queryLocked(collection, sub.query)})
		}
	}
	m.mu.Unlock()
	for _, d := range pending {
		d.sub.onSnapshot(d.docs)
	}
}

func (m *Memory) queryLocked(collection string, q Query) []Document {
	var docs []Document
	for id, fields := range m.data[collection] {
		if q.EqualField != "" {
			match := false
			if q.EqualField == "_id" {
				match = id == fmt.Sprint(q.EqualValue)
			} else {
				match = fmt.Sprint(fields[q.EqualField]) == fmt.Sprint(q.EqualValue)
			}
			if !match {
				continue
			}
		}
		docs = append(docs, Document{ID: id, Fields: copyFields(fields)})
	}
	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a, b := numeric(docs[i].Fields[q.OrderBy]), numeric(docs[j].Fields[q.OrderBy])
			if a != b {
				return a < b
			}
			return docs[i].ID < docs[j].ID
		})
		if q.LimitToLast > 0 && len(docs) > q.LimitToLast {
			docs = docs[len(docs)-q.LimitToLast:]
		}
	} else {
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	}
	return docs
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// MemoryBlob is an in-memory Blob for tests.
type MemoryBlob struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	n       int
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: make(map[string]memoryObject)}
}

// Store places bytes directly under a known key, for test setup.
func (b *MemoryBlob) Store(ref string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[ref] = memoryObject{data: data, contentType: "application/pdf"}
}

func (b *MemoryBlob) Metadata(_ context.Context, ref string) (BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[ref]
	if !ok {
		return BlobInfo{}, ErrNotFound
	}
	return BlobInfo{SizeBytes: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (b *MemoryBlob) GetBytes(_ context.Context, ref string, maxBytes int64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[ref]
	if !ok {
		return nil, ErrNotFound
	}
	if maxBytes > 0 && int64(len(obj.data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrSizeExceeded, len(obj.data), maxBytes)
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (b *MemoryBlob) Put(_ context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	ref := fmt.Sprintf("%sobj-%d%s", prefix, b.n, filepath.Ext(originalFilename))
	b.objects[ref] = memoryObject{data: data, contentType: contentType}
	return ref, nil
}

func (b *MemoryBlob) DownloadURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[ref]; !ok {
		return "", ErrNotFound
	}
	return "mem://" + ref, nil
}

func (b *MemoryBlob) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, ref)
	return nil
}
