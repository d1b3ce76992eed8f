package searcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// ApproveDeletions queues a batch of removed shards. A single worker
// rebuilds the view once per batch, in submission order, and then approves
// every deletion in the batch, even if the rebuild failed; the failure is
// returned by the next search instead. After Shutdown deletions are
// approved at once.
func (s *Searcher) ApproveDeletions(batch []*shard.PendingDeletion) {
	if len(batch) == 0 {
		return
	}
	s.deletions.submit(batch)
}

// rebuildForDeletion is the worker's rebuild step.
func (s *Searcher) rebuildForDeletion() {
	_, err := s.Rebuild(context.Background())
	if err == nil || errors.Is(err, sserrors.ErrShutDown) {
		return
	}
	s.logger.Warn("deletion_rebuild_failed", slog.String("error", err.Error()))
	s.recordFault(err)
}

// deletionQueue is an unbounded FIFO of deletion batches drained by one
// goroutine.
type deletionQueue struct {
	rebuild func()
	logger  *slog.Logger

	mu      sync.Mutex
	batches [][]*shard.PendingDeletion
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newDeletionQueue(rebuild func(), logger *slog.Logger) *deletionQueue {
	q := &deletionQueue{
		rebuild: rebuild,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *deletionQueue) submit(batch []*shard.PendingDeletion) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		approveAll(batch)
		return
	}
	q.batches = append(q.batches, batch)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *deletionQueue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.quit:
			return
		case <-q.wake:
		}
		for {
			batch, ok := q.pop()
			if !ok {
				break
			}
			q.rebuild()
			approveAll(batch)
			q.logger.Debug("deletion_batch_approved", slog.Int("shards", len(batch)))
		}
	}
}

func (q *deletionQueue) pop() ([]*shard.PendingDeletion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped || len(q.batches) == 0 {
		return nil, false
	}
	batch := q.batches[0]
	q.batches[0] = nil
	q.batches = q.batches[1:]
	return batch, true
}

// stop approves everything still queued and waits for the worker to exit.
func (q *deletionQueue) stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	pending := q.batches
	q.batches = nil
	q.mu.Unlock()

	for _, batch := range pending {
		approveAll(batch)
	}
	close(q.quit)
	<-q.done
}

func approveAll(batch []*shard.PendingDeletion) {
	for _, d := range batch {
		d.Approve()
	}
}
