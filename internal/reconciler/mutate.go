package reconciler

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/remote"
)

// Mutation describes one user write that must survive being offline.
type Mutation[T any] struct {
	// Name is used in logs.
	Name string
	// Key is the queue the entity is appended to when the write is deferred.
	Key    string
	Entity T
	// Write performs the remote write.
	Write func(ctx context.Context) error
	// Merge applies the entity to the in-memory mirrors. pending is true
	// when the write was queued.
	Merge func(entity T, pending bool)
	// Same, when set, identifies an already queued envelope that the new
	// one replaces instead of being appended after.
	Same func(queued, entity T) bool
}

// Mutate writes online when possible and falls back to the durable queue
// when offline or when the failure is deferrable. Other failures are
// returned unchanged and nothing is queued.
func Mutate[T any](ctx context.Context, r *Reconciler, m Mutation[T]) (queued bool, err error) {
	if r.IsOnline() {
		err := m.Write(ctx)
		if err == nil {
			if m.Merge != nil {
				m.Merge(m.Entity, false)
			}
			return false, nil
		}
		if !remote.Deferrable(err) {
			return false, err
		}
		log.Warn("Remote write deferred", "operation", m.Name, "kind", remote.KindOf(err), "error", err)
	}

	if err := enqueue(r, m.Key, m.Entity, m.Same); err != nil {
		return false, fmt.Errorf("failed to queue %s: %w", m.Name, err)
	}
	if m.Merge != nil {
		m.Merge(m.Entity, true)
	}
	log.Info("Operation queued for sync", "operation", m.Name, "queue", m.Key)
	return true, nil
}

func enqueue[T any](r *Reconciler, key string, item T, same func(queued, item T) bool) error {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	queue := localstore.LoadOr(r.local, key, []T{})
	replaced := false
	if same != nil {
		for i := range queue {
			if same(queue[i], item) {
				queue[i] = item
				replaced = true
				break
			}
		}
	}
	if !replaced {
		queue = append(queue, item)
	}
	if err := r.local.Save(key, queue); err != nil {
		return err
	}
	r.metrics.SetPendingOperations(r.pendingLocked().Total())
	return nil
}

// dequeue drops every queued entry for which settled reports true. The queue
// is re-read so entries added during a drain are kept.
func dequeue[T any](r *Reconciler, key string, settled func(T) bool) error {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	queue := localstore.LoadOr(r.local, key, []T{})
	kept := make([]T, 0, len(queue))
	for _, item := range queue {
		if !settled(item) {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(queue) {
		return nil
	}
	if err := r.local.Save(key, kept); err != nil {
		return fmt.Errorf("failed to save queue %s: %w", key, err)
	}
	r.metrics.SetPendingOperations(r.pendingLocked().Total())
	return nil
}

// replaceQueued rewrites the queued entries matched by same and leaves the
// queue alone when nothing matches. It reports whether anything changed.
func replaceQueued[T any](r *Reconciler, key string, same func(T) bool, update func(T) T) (bool, error) {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	queue := localstore.LoadOr(r.local, key, []T{})
	changed := false
	for i := range queue {
		if same(queue[i]) {
			queue[i] = update(queue[i])
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	if err := r.local.Save(key, queue); err != nil {
		return false, fmt.Errorf("failed to save queue %s: %w", key, err)
	}
	return true, nil
}

// snapshot returns the queue as it stands.
func snapshot[T any](r *Reconciler, key string) []T {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	return localstore.LoadOr(r.local, key, []T{})
}
