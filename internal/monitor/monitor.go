// Package monitor polls the primary provider's inbox prefix and ingests
// new files as they appear.
package monitor

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/usecases"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
)

// BucketMonitor watches auto_ingest/ on the primary provider. It is either
// idle or monitoring; Start and Stop toggle between the two. Progress
// events go out on a bounded channel and are dropped, newest first, when
// no consumer keeps up.
type BucketMonitor struct {
	ingest  *usecases.IngestUseCase
	store   *usecases.StoreUseCase
	factory ports.ClientFactory
	configs ports.ConfigStore
	metrics *metrics.Monitor
	log     *zap.Logger

	interval time.Duration
	events   chan entities.ProgressEvent

	mu         sync.Mutex
	monitoring bool
	processed  map[string]bool
	lastCheck  time.Time
	stop       chan struct{}
	done       chan struct{}
}

// NewBucketMonitor creates an idle monitor. queueSize bounds the event
// channel; events beyond the bound are dropped rather than blocking the
// poll loop.
func NewBucketMonitor(
	ingest *usecases.IngestUseCase,
	store *usecases.StoreUseCase,
	factory ports.ClientFactory,
	configs ports.ConfigStore,
	m *metrics.Monitor,
	interval time.Duration,
	queueSize int,
	log *zap.Logger,
) *BucketMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 500
	}
	return &BucketMonitor{
		ingest:    ingest,
		store:     store,
		factory:   factory,
		configs:   configs,
		metrics:   m,
		log:       log,
		interval:  interval,
		events:    make(chan entities.ProgressEvent, queueSize),
		processed: make(map[string]bool),
	}
}

// Events returns the progress event stream. Delivery is best-effort.
func (m *BucketMonitor) Events() <-chan entities.ProgressEvent {
	return m.events
}

// Start begins polling. Requires the primary provider to be configured.
// Starting an already-running monitor is a no-op.
func (m *BucketMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monitoring {
		return nil
	}
	if !m.configs.IsConfigured(entities.RolePrimary) {
		return fmt.Errorf("cannot start monitoring: %s: %w", entities.RolePrimary, entities.ErrNotConfigured)
	}

	m.monitoring = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(ctx, m.stop, m.done)

	m.log.Info("bucket monitoring started",
		zap.Duration("interval", m.interval))
	return nil
}

// Stop halts polling. Waits briefly for the current cycle to finish; a
// long-running cycle is abandoned rather than blocking the caller.
func (m *BucketMonitor) Stop() {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return
	}
	m.monitoring = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		m.log.Warn("poll cycle still running at stop, abandoning")
	}
	m.log.Info("bucket monitoring stopped")
}

// Status returns a snapshot of the monitor state.
func (m *BucketMonitor) Status() entities.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := make([]string, 0, len(m.processed))
	for f := range m.processed {
		files = append(files, f)
	}

	status := entities.MonitorStatus{
		Monitoring:     m.monitoring,
		ProcessedCount: len(files),
		ProcessedFiles: files,
	}
	if cfg, err := m.configs.Get(entities.RolePrimary); err == nil {
		status.BucketName = cfg.BucketName
	}
	if !m.lastCheck.IsZero() {
		status.LastCheck = m.lastCheck.UTC().Format(time.RFC3339)
	}
	return status
}

// run is the poll loop. A failed cycle doubles the wait before the next
// one; the doubling applies to that cycle only.
func (m *BucketMonitor) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	for {
		wait := m.interval
		if err := m.pollOnce(ctx); err != nil {
			wait = m.interval * 2
			m.log.Warn("poll cycle failed, backing off",
				zap.Duration("next_wait", wait),
				zap.Error(err))
		}

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// pollOnce lists the inbox and ingests anything new. A file is marked
// processed, and moved to processed/, only when the index actually grew;
// otherwise it stays in the inbox and is retried next cycle.
func (m *BucketMonitor) pollOnce(ctx context.Context) error {
	client, err := m.factory.Client(entities.RolePrimary)
	if err != nil {
		return err
	}

	objects, err := client.List(ctx, entities.InboxPrefix)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.mu.Unlock()

	for _, obj := range objects {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if m.shouldSkip(obj.Key) {
			continue
		}
		m.processFile(ctx, client, obj.Key)
	}
	return nil
}

func (m *BucketMonitor) shouldSkip(key string) bool {
	if key == entities.InboxPrefix || strings.HasSuffix(key, "/") {
		return true
	}
	name := path.Base(key)
	if !m.ingest.Supported(name) {
		m.log.Debug("skipping unsupported file", zap.String("key", key))
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[key]
}

func (m *BucketMonitor) processFile(ctx context.Context, client ports.ObjectStore, key string) {
	name := path.Base(key)
	m.log.Info("new file in inbox", zap.String("key", key))

	start := time.Now()
	data, err := client.Get(ctx, key)
	downloadMs := float64(time.Since(start).Microseconds()) / 1000
	m.metrics.RecordOperation("get", entities.RolePrimary, len(data), downloadMs, err == nil)
	if err != nil {
		m.log.Warn("inbox download failed, will retry", zap.String("key", key), zap.Error(err))
		return
	}

	sizeBefore := m.store.Size()
	_, err = m.ingest.IngestFile(ctx, data, name, func(ev entities.ProgressEvent) {
		ev.S3Key = key
		m.publish(ev)
	})
	if err != nil {
		m.log.Warn("ingestion failed, will retry", zap.String("key", key), zap.Error(err))
		return
	}

	if m.store.Size() <= sizeBefore {
		m.log.Warn("file added no chunks, leaving in inbox for retry", zap.String("key", key))
		return
	}

	m.mu.Lock()
	m.processed[key] = true
	m.mu.Unlock()

	m.moveToProcessed(ctx, client, key)
}

// moveToProcessed copies the inbox object under processed/, preserving the
// key's path relative to the inbox, and deletes the original. Move failures
// are logged only; the tracked set already prevents reprocessing.
func (m *BucketMonitor) moveToProcessed(ctx context.Context, client ports.ObjectStore, key string) {
	dst := entities.ProcessedPrefix + strings.TrimPrefix(key, entities.InboxPrefix)
	if err := client.Copy(ctx, key, dst); err != nil {
		m.log.Warn("copy to processed/ failed, leaving original in place",
			zap.String("key", key), zap.Error(err))
		return
	}
	if err := client.Delete(ctx, key); err != nil {
		m.log.Warn("inbox delete failed after copy",
			zap.String("key", key), zap.Error(err))
		return
	}
	m.log.Info("file archived", zap.String("from", key), zap.String("to", dst))
}

// publish pushes an event without blocking. When the queue is full the
// newest event loses.
func (m *BucketMonitor) publish(ev entities.ProgressEvent) {
	select {
	case m.events <- ev:
	default:
		m.log.Debug("event queue full, dropping event",
			zap.String("file", ev.File),
			zap.Int("chunk_index", ev.ChunkIndex))
	}
}
