package searcher

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkfz007/shardsearch/internal/shard"
)

// fakeRegistry is an in-memory Registry.
type fakeRegistry struct {
	mu        sync.Mutex
	shards    []*shard.Shard
	err       error
	calls     int
	listeners map[int][2]func(*shard.Shard)
	nextID    int
}

func newFakeRegistry(shards ...*shard.Shard) *fakeRegistry {
	return &fakeRegistry{shards: shards, listeners: map[int][2]func(*shard.Shard){}}
}

func (r *fakeRegistry) Shards(context.Context) ([]*shard.Shard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return append([]*shard.Shard(nil), r.shards...), nil
}

func (r *fakeRegistry) Subscribe(onAdded, onRemoved func(*shard.Shard)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = [2]func(*shard.Shard){onAdded, onRemoved}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *fakeRegistry) subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *fakeRegistry) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// add registers sh and notifies listeners after unlocking.
func (r *fakeRegistry) add(sh *shard.Shard) {
	r.mu.Lock()
	r.shards = append(r.shards, sh)
	var notify []func(*shard.Shard)
	for _, l := range r.listeners {
		notify = append(notify, l[0])
	}
	r.mu.Unlock()
	for _, f := range notify {
		f(sh)
	}
}

// drop removes a shard from the list and returns its pending deletion.
func (r *fakeRegistry) drop(id string) *shard.PendingDeletion {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sh := range r.shards {
		if sh.ID == id {
			r.shards = append(r.shards[:i], r.shards[i+1:]...)
			return shard.NewPendingDeletion(sh)
		}
	}
	return nil
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func newSearcher(t *testing.T, reg Registry, opts ...Option) *Searcher {
	t.Helper()
	logger, _ := testLogger()
	s, err := New(context.Background(), reg, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}
