package searcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/shard"
	"github.com/xkfz007/shardsearch/internal/shardtest"
)

func TestStress_SearchesDuringRebuildsAndDeletions(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test")
	}

	// Given: a stable shard plus shards that come and go
	dir := t.TempDir()
	base := shardtest.New(t, dir, "base", shardtest.Docs(20, "apple")...)
	reg := newFakeRegistry(base)
	s := newSearcher(t, reg, WithOpenWorkers(2))
	q := compile(t, "apple")

	const readers = 8
	const cycles = 15

	var (
		wg       sync.WaitGroup
		searches atomic.Int64
		failures atomic.Int64
		stop     = make(chan struct{})
	)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				m, err := s.Match(context.Background(), q, query.FilterSpec{}, 50)
				if err != nil || m.Total < 20 {
					failures.Add(1)
					continue
				}
				searches.Add(1)
			}
		}()
	}

	// When: shards are added and removed repeatedly
	for i := 0; i < cycles; i++ {
		id := fmt.Sprintf("churn-%02d", i)
		sh := shardtest.New(t, dir, id, shardtest.Docs(5, "apple")...)
		reg.add(sh)
		d := reg.drop(id)
		s.ApproveDeletions([]*shard.PendingDeletion{d})
		waitApproved(t, d)
		require.NoError(t, os.RemoveAll(sh.IndexPath))
	}
	close(stop)
	wg.Wait()

	// Then: no search failed and only the base shard remains
	assert.Zero(t, failures.Load())
	assert.Positive(t, searches.Load())
	assert.Equal(t, Stats{Shards: 1, Open: 1, Documents: 20}, s.Stats())
}
