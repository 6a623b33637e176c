package remote

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Operation names used in errors and fault injection.
const (
	OpAddDocument    = "AddDocument"
	OpUpdateDocument = "UpdateDocument"
	OpGetDocument    = "GetDocument"
	OpQueryDocuments = "QueryDocuments"
	OpSubscribe      = "Subscribe"
	OpBatchWrite     = "BatchWrite"
)

type memorySub struct {
	collection string
	filters    []Filter
	order      *Order
	onData     func([]Document)
	onError    func(error)
}

// Memory is an in-process Store. Subscriptions are notified synchronously
// after each change. Faults can be injected per operation.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]map[string]Document
	seq    map[string][]string
	subs   map[int]*memorySub
	nextID int
	faults map[string]error
	calls  map[string]int

	// BatchHook, when set, runs before a batch is applied. A non-nil
	// return fails the batch without applying any write.
	BatchHook func(writes []Write) error
}

func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]map[string]Document),
		seq:    make(map[string][]string),
		subs:   make(map[int]*memorySub),
		faults: make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetFault makes every call to op fail with err until cleared with a nil err.
func (m *Memory) SetFault(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// SetOffline fails every operation with a network error, or clears all
// faults.
func (m *Memory) SetOffline(offline bool) {
	ops := []string{OpAddDocument, OpUpdateDocument, OpGetDocument, OpQueryDocuments, OpSubscribe, OpBatchWrite}
	for _, op := range ops {
		if offline {
			m.SetFault(op, NewError(KindNetworkUnavailable, op, "", errors.New("unavailable")))
		} else {
			m.SetFault(op, nil)
		}
	}
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Subscribers returns the number of live subscriptions on collection.
func (m *Memory) Subscribers(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		if s.collection == collection {
			n++
		}
	}
	return n
}

// BreakSubscriptions terminates every subscription on collection with err.
func (m *Memory) BreakSubscriptions(collection string, err error) {
	m.mu.Lock()
	var broken []*memorySub
	for id, s := range m.subs {
		if s.collection == collection {
			broken = append(broken, s)
			delete(m.subs, id)
		}
	}
	m.mu.Unlock()
	for _, s := range broken {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

// Put stores doc under id directly, bypassing faults and counters.
func (m *Memory) Put(collection, id string, doc Document) {
	m.mu.Lock()
	m.put(collection, id, doc)
	notify := m.snapshotsFor(collection)
	m.mu.Unlock()
	notify()
}

// Count returns the number of documents in collection.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

func (m *Memory) AddDocument(ctx context.Context, collection string, data Document) (string, error) {
	m.mu.Lock()
	if err := m.enter(OpAddDocument, collection); err != nil {
		m.mu.Unlock()
		return "", err
	}
	id := NewID()
	m.put(collection, id, data)
	notify := m.snapshotsFor(collection)
	m.mu.Unlock()
	notify()
	return id, nil
}

func (m *Memory) UpdateDocument(ctx context.Context, collection, id string, data Document) error {
	m.mu.Lock()
	if err := m.enter(OpUpdateDocument, collection); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.merge(collection, id, data); err != nil {
		m.mu.Unlock()
		return NewError(KindNotFound, OpUpdateDocument, collection, err)
	}
	notify := m.snapshotsFor(collection)
	m.mu.Unlock()
	notify()
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGetDocument, collection); err != nil {
		return nil, err
	}
	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, NewError(KindNotFound, OpGetDocument, collection, fmt.Errorf("document %s not found", id))
	}
	return copyDoc(doc), nil
}

func (m *Memory) QueryDocuments(ctx context.Context, collection string, filters []Filter, order *Order) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpQueryDocuments, collection); err != nil {
		return nil, err
	}
	return m.query(collection, filters, order), nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, filters []Filter, order *Order, onData func([]Document), onError func(error)) (Unsubscribe, error) {
	m.mu.Lock()
	if err := m.enter(OpSubscribe, collection); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = &memorySub{collection: collection, filters: filters, order: order, onData: onData, onError: onError}
	initial := m.query(collection, filters, order)
	m.mu.Unlock()

	onData(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *Memory) BatchWrite(ctx context.Context, writes []Write) error {
	m.mu.Lock()
	if err := m.enter(OpBatchWrite, ""); err != nil {
		m.mu.Unlock()
		return err
	}
	if len(writes) > MaxBatchSize {
		m.mu.Unlock()
		return NewError(KindValidation, OpBatchWrite, "", fmt.Errorf("batch of %d exceeds %d writes", len(writes), MaxBatchSize))
	}
	if m.BatchHook != nil {
		if err := m.BatchHook(writes); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	// Validate everything first so the batch applies all or nothing.
	for _, w := range writes {
		if w.Kind == WriteUpdate {
			if _, ok := m.docs[w.Collection][w.ID]; !ok {
				m.mu.Unlock()
				return NewError(KindNotFound, OpBatchWrite, w.Collection, fmt.Errorf("document %s not found", w.ID))
			}
		}
	}
	touched := make(map[string]bool)
	for _, w := range writes {
		switch w.Kind {
		case WriteAdd:
			m.put(w.Collection, idOrNew(w.ID), w.Data)
		case WriteUpdate:
			_ = m.merge(w.Collection, w.ID, w.Data)
		}
		touched[w.Collection] = true
	}
	var notifiers []func()
	for collection := range touched {
		notifiers = append(notifiers, m.snapshotsFor(collection))
	}
	m.mu.Unlock()
	for _, notify := range notifiers {
		notify()
	}
	return nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = make(map[int]*memorySub)
	return nil
}

// enter counts the call and returns the injected fault, if any. Callers hold mu.
func (m *Memory) enter(op, collection string) error {
	m.calls[op]++
	if err, ok := m.faults[op]; ok {
		var remoteErr *Error
		if errors.As(err, &remoteErr) {
			return err
		}
		return NewError(KindOf(err), op, collection, err)
	}
	return nil
}

func (m *Memory) put(collection, id string, data Document) {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]Document)
	}
	doc := normalizeDoc(data)
	doc[FieldID] = id
	if _, exists := m.docs[collection][id]; !exists {
		m.seq[collection] = append(m.seq[collection], id)
	}
	m.docs[collection][id] = doc
}

func (m *Memory) merge(collection, id string, data Document) error {
	doc, ok := m.docs[collection][id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	for k, v := range normalizeDoc(data) {
		if k == FieldID {
			continue
		}
		doc[k] = v
	}
	return nil
}

func (m *Memory) query(collection string, filters []Filter, order *Order) []Document {
	out := make([]Document, 0)
	for _, id := range m.seq[collection] {
		doc := m.docs[collection][id]
		if matches(doc, filters) {
			out = append(out, copyDoc(doc))
		}
	}
	if order != nil {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i][order.Field], out[j][order.Field])
			if order.Desc {
				return lessValue(out[j][order.Field], out[i][order.Field])
			}
			return less
		})
	}
	return out
}

// snapshotsFor captures the current result of every subscription on
// collection and returns a func that delivers them. Callers hold mu and
// must invoke the returned func after releasing it.
func (m *Memory) snapshotsFor(collection string) func() {
	type delivery struct {
		onData func([]Document)
		docs   []Document
	}
	var deliveries []delivery
	for _, s := range m.subs {
		if s.collection != collection {
			continue
		}
		deliveries = append(deliveries, delivery{onData: s.onData, docs: m.query(collection, s.filters, s.order)})
	}
	return func() {
		for _, d := range deliveries {
			d.onData(d.docs)
		}
	}
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		value := doc[f.Field]
		want := normalize(f.Value)
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(value, want) {
				return false
			}
		case OpNotEqual:
			if reflect.DeepEqual(value, want) {
				return false
			}
		case OpIn:
			candidates, ok := want.([]any)
			if !ok {
				return false
			}
			found := false
			for _, c := range candidates {
				if reflect.DeepEqual(value, c) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case bool:
		bv, _ := b.(bool)
		return !av && bv
	case nil:
		return b != nil
	default:
		return false
	}
}

func normalizeDoc(data Document) Document {
	doc, ok := normalize(map[string]any(data)).(map[string]any)
	if !ok || doc == nil {
		return Document{}
	}
	return Document(doc)
}

func copyDoc(doc Document) Document {
	return normalizeDoc(doc)
}

func idOrNew(id string) string {
	if id == "" {
		return NewID()
	}
	return id
}
