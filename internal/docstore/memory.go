package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for development and tests.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	watchers    map[*memWatcher]struct{}
}

type memCollection struct {
	order []string
	docs  map[string]map[string]interface{}
}

type memWatcher struct {
	collection string
	notify     chan struct{}
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memCollection),
		watchers:    make(map[*memWatcher]struct{}),
	}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]map[string]interface{})}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Watch(ctx context.Context, collection string) (<-chan Snapshot, error) {
	w := &memWatcher{collection: collection, notify: make(chan struct{}, 1)}
	w.notify <- struct{}{}

	m.mu.Lock()
	m.watchers[w] = struct{}{}
	m.mu.Unlock()

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers, w)
			m.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				if !send(ctx, out, m.snapshot(collection)) {
					return
				}
			}
		}
	}()

	return out, nil
}

func (m *Memory) snapshot(collection string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, Document{ID: id, Data: copyData(c.docs[id])})
	}
	return Snapshot{Documents: docs}
}

// changed wakes every watcher of collection. Must be called with mu held.
// A pending wake-up already covers this change, so a full buffer is skipped.
func (m *Memory) changed(collection string) {
	for w := range m.watchers {
		if w.collection != collection {
			continue
		}
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	c := m.collection(collection)
	c.order = append(c.order, id)
	c.docs[id] = copyData(data)
	m.changed(collection)
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, set map[string]interface{}, clear []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(set) == 0 && len(clear) == 0 {
		return ErrEmptyUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collection(collection).docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range set {
		doc[k] = v
	}
	for _, k := range clear {
		delete(doc, k)
	}
	m.changed(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.changed(collection)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
