package cache

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
	"github.com/farhan-ashraf/simpledex-analytics/internal/scheduler"
)

type recentPusher interface {
	Push(ctx context.Context, records ...SwapRecord) error
}

type archiver interface {
	InsertSwaps(ctx context.Context, records []SwapRecord) error
}

type broadcaster interface {
	PublishSwaps(ctx context.Context, records []SwapRecord) error
	PublishMetrics(ctx context.Context, metrics models.PoolMetrics) error
}

// Recorder is a snapshot sink that records swaps the refresh cycle has not
// seen before. Windows overlap between cycles, so it keeps a high-water
// mark over (blockNumber, logIndex) and only forwards events past it.
type Recorder struct {
	convert RecordConverter
	recent  recentPusher
	archive archiver
	pubsub  broadcaster
	logger  *logrus.Logger

	mu        sync.Mutex
	lastBlock uint64
	lastIndex uint32
	primed    bool
}

// NewRecorder builds a recorder. Any of recent, archive and pubsub may be
// nil; the matching output is skipped.
func NewRecorder(convert RecordConverter, recent *RecentSwapCache, archive *Archive, pubsub *PubSubManager, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	r := &Recorder{convert: convert, logger: logger}
	if recent != nil {
		r.recent = recent
	}
	if archive != nil {
		r.archive = archive
	}
	if pubsub != nil {
		r.pubsub = pubsub
	}
	return r
}

// Publish implements scheduler.Sink.
func (r *Recorder) Publish(ctx context.Context, snap *scheduler.Snapshot) error {
	records := r.takeNew(snap)

	if len(records) > 0 {
		if r.recent != nil {
			if err := r.recent.Push(ctx, records...); err != nil {
				r.logger.WithError(err).Warn("recent swap cache update failed")
			}
		}
		if r.archive != nil {
			if err := r.archive.InsertSwaps(ctx, records); err != nil {
				r.logger.WithError(err).Warn("swap archive insert failed")
			}
		}
		if r.pubsub != nil {
			if err := r.pubsub.PublishSwaps(ctx, records); err != nil {
				r.logger.WithError(err).Warn("swap broadcast failed")
			}
		}
	}

	if r.pubsub != nil {
		if err := r.pubsub.PublishMetrics(ctx, snap.Metrics); err != nil {
			r.logger.WithError(err).Warn("metrics broadcast failed")
		}
	}
	return nil
}

// takeNew advances the high-water mark and returns the swaps beyond the
// old one, oldest first. The first snapshot primes the mark without
// emitting: the window's history predates this process and is already
// archived by whoever ran before it.
func (r *Recorder) takeNew(snap *scheduler.Snapshot) []SwapRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []SwapRecord
	if r.primed {
		for _, swap := range snap.Window.Swaps {
			if r.after(swap.BlockNumber, swap.LogIndex) {
				records = append(records, r.convert.Record(swap))
			}
		}
	}

	if n := len(snap.Window.Swaps); n > 0 {
		last := snap.Window.Swaps[n-1]
		if !r.primed || r.after(last.BlockNumber, last.LogIndex) {
			r.lastBlock, r.lastIndex = last.BlockNumber, last.LogIndex
		}
	} else if !r.primed {
		// empty first window: everything up to the head counts as seen
		r.lastBlock, r.lastIndex = snap.Window.ToBlock, ^uint32(0)
	}
	r.primed = true

	return records
}

func (r *Recorder) after(block uint64, index uint32) bool {
	if block != r.lastBlock {
		return block > r.lastBlock
	}
	return index > r.lastIndex
}
