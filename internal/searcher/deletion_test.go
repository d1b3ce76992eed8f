package searcher

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/shard"
	"github.com/xkfz007/shardsearch/internal/shardtest"
)

func waitApproved(t *testing.T, d *shard.PendingDeletion) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
	require.True(t, d.Approved())
}

func TestApproveDeletions_ApprovesAfterViewDropsShard(t *testing.T) {
	// Given: a searcher over two shards
	dir := t.TempDir()
	keep := shardtest.New(t, dir, "keep", shardtest.Docs(2, "apple")...)
	gone := shardtest.New(t, dir, "gone", shardtest.Docs(2, "apple")...)
	reg := newFakeRegistry(keep, gone)
	s := newSearcher(t, reg)

	// When: the registry drops one and hands over the deletion
	d := reg.drop("gone")
	s.ApproveDeletions([]*shard.PendingDeletion{d})
	waitApproved(t, d)

	// Then: the live view no longer references it
	s.mu.RLock()
	_, stillOpen := s.view.handles["gone"]
	s.mu.RUnlock()
	assert.False(t, stillOpen)
	assert.Equal(t, Stats{Shards: 1, Open: 1, Documents: 2}, s.Stats())

	// And: once storage is deleted searches are unaffected
	require.NoError(t, os.RemoveAll(gone.IndexPath))
	m, err := s.Match(context.Background(), compile(t, "apple"), query.FilterSpec{}, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"keep": 2}, shardIDs(t, m.Records))
}

func TestApproveDeletions_WaitsForInFlightSearch(t *testing.T) {
	// Given: a search holding the read side of the view over the shard
	dir := t.TempDir()
	keep := shardtest.New(t, dir, "keep", shardtest.Docs(1, "apple")...)
	gone := shardtest.New(t, dir, "gone", shardtest.Docs(3, "apple")...)
	reg := newFakeRegistry(keep, gone)
	s := newSearcher(t, reg)
	s.mu.RLock()
	inFlight := s.view

	// When: the shard is dropped and its deletion submitted
	d := reg.drop("gone")
	s.ApproveDeletions([]*shard.PendingDeletion{d})

	// Then: it is not approved while the search can still read the shard
	select {
	case <-d.Done():
		t.Fatal("deletion approved while a search was in flight")
	case <-time.After(200 * time.Millisecond):
	}
	assert.False(t, d.Approved())
	_, readable := inFlight.handles["gone"]
	assert.True(t, readable)

	// And: it is approved once the search releases the view
	s.mu.RUnlock()
	waitApproved(t, d)
	s.mu.RLock()
	_, stillOpen := s.view.handles["gone"]
	s.mu.RUnlock()
	assert.False(t, stillOpen)
}

func TestApproveDeletions_EmptyBatchIgnored(t *testing.T) {
	reg := newFakeRegistry()
	s := newSearcher(t, reg)
	reg.mu.Lock()
	calls := reg.calls
	reg.mu.Unlock()

	s.ApproveDeletions(nil)
	s.ApproveDeletions([]*shard.PendingDeletion{})
	require.NoError(t, s.Shutdown())

	reg.mu.Lock()
	defer reg.mu.Unlock()
	assert.Equal(t, calls, reg.calls)
}

func TestApproveDeletions_ApprovesEveryBatch(t *testing.T) {
	// Given: several shards
	dir := t.TempDir()
	reg := newFakeRegistry()
	for _, id := range []string{"a", "b", "c", "d"} {
		reg.shards = append(reg.shards, shardtest.New(t, dir, id, shardtest.Docs(1, "apple")...))
	}
	s := newSearcher(t, reg)

	// When: submitting batches back to back
	var order []string
	var mu sync.Mutex
	var batches [][]*shard.PendingDeletion
	for _, id := range []string{"a", "b", "c"} {
		d := reg.drop(id)
		batches = append(batches, []*shard.PendingDeletion{d})
		go func(id string, d *shard.PendingDeletion) {
			<-d.Done()
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}(id, d)
	}
	for _, b := range batches {
		s.ApproveDeletions(b)
	}

	// Then: every deletion is approved
	for _, b := range batches {
		waitApproved(t, b[0])
	}
	assert.Equal(t, Stats{Shards: 1, Open: 1, Documents: 1}, s.Stats())
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApproveDeletions_RebuildFaultIsDeferred(t *testing.T) {
	// Given: a registry that starts failing
	dir := t.TempDir()
	sh := shardtest.New(t, dir, "one", shardtest.Docs(2, "apple")...)
	reg := newFakeRegistry(sh)
	logger, logs := testLogger()
	s := newSearcher(t, reg, WithLogger(logger))
	reg.setErr(errors.New("catalog unreadable"))

	// When: a deletion is processed
	d := shard.NewPendingDeletion(sh)
	s.ApproveDeletions([]*shard.PendingDeletion{d})

	// Then: the deletion is still approved
	waitApproved(t, d)
	assert.Contains(t, logs.String(), "deletion_rebuild_failed")

	// And: the next search reports the fault once
	_, err := s.Search(context.Background(), "apple")
	assert.ErrorIs(t, err, sserrors.ErrIOFault)
	assert.Contains(t, err.Error(), "catalog unreadable")

	_, err = s.Search(context.Background(), "apple")
	assert.ErrorIs(t, err, sserrors.ErrNothingToSearch, "the empty view stays until the registry recovers")
}

func TestApproveDeletions_AfterShutdownApprovesImmediately(t *testing.T) {
	dir := t.TempDir()
	sh := shardtest.New(t, dir, "one", shardtest.Docs(1, "apple")...)
	s := newSearcher(t, newFakeRegistry(sh))
	require.NoError(t, s.Shutdown())

	d := shard.NewPendingDeletion(sh)
	s.ApproveDeletions([]*shard.PendingDeletion{d})

	assert.True(t, d.Approved())
}

func TestDeletionQueue_StopApprovesPending(t *testing.T) {
	// Given: a queue whose worker is stuck in a rebuild
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	logger, _ := testLogger()
	q := newDeletionQueue(func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}, logger)

	first := shard.NewPendingDeletion(&shard.Shard{ID: "a"})
	second := shard.NewPendingDeletion(&shard.Shard{ID: "b"})
	q.submit([]*shard.PendingDeletion{first})
	<-started
	q.submit([]*shard.PendingDeletion{second})

	// When: stopping while the worker is busy
	stopped := make(chan struct{})
	go func() {
		q.stop()
		close(stopped)
	}()

	// Then: the queued batch is approved without waiting for the worker
	waitApproved(t, second)
	close(release)
	<-stopped
	assert.True(t, first.Approved())
}
