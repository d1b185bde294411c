package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperlens/paperlens/adapters/metrics"
	"github.com/paperlens/paperlens/domain/record"
	"github.com/paperlens/paperlens/ports"
)

// AuditRecorder buffers api-request rows and writes them in batches to
// the store. Record never blocks on storage; a full batch or the flush
// ticker triggers a background write.
type AuditRecorder struct {
	store         ports.RequestLogStore
	log           zerolog.Logger
	metrics       *metrics.Collector
	buffer        []record.APIRequest
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewAuditRecorder creates a recorder and starts its flush loop. The
// metrics collector may be nil.
func NewAuditRecorder(store ports.RequestLogStore, log zerolog.Logger, m *metrics.Collector, batchSize int, flushInterval time.Duration) *AuditRecorder {
	if batchSize == 0 {
		batchSize = 100
	}
	if flushInterval == 0 {
		flushInterval = 10 * time.Second
	}

	r := &AuditRecorder{
		store:         store,
		log:           log,
		metrics:       m,
		buffer:        make([]record.APIRequest, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}

	r.wg.Add(1)
	go r.flushLoop()

	return r
}

// Record queues an audit row.
func (r *AuditRecorder) Record(row record.APIRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, row)
	r.setDepth(len(r.buffer))

	if len(r.buffer) >= r.batchSize {
		batch := r.takeLocked()
		// Tracked so Close waits for in-flight threshold writes.
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.write(batch)
		}()
	}
}

// Flush writes all queued rows before returning.
func (r *AuditRecorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.takeLocked()
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return r.store.RecordBatch(ctx, batch)
}

// takeLocked detaches the current buffer. Caller holds the mutex.
func (r *AuditRecorder) takeLocked() []record.APIRequest {
	if len(r.buffer) == 0 {
		return nil
	}
	batch := make([]record.APIRequest, len(r.buffer))
	copy(batch, r.buffer)
	r.buffer = r.buffer[:0]
	r.setDepth(0)
	return batch
}

func (r *AuditRecorder) write(batch []record.APIRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.store.RecordBatch(ctx, batch); err != nil {
		if r.metrics != nil {
			r.metrics.AuditFlushErrors.Inc()
		}
		r.log.Error().Err(err).Int("rows", len(batch)).Msg("audit batch write failed")
	}
}

func (r *AuditRecorder) setDepth(n int) {
	if r.metrics != nil {
		r.metrics.AuditQueueDepth.Set(float64(n))
	}
}

func (r *AuditRecorder) flushLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Flush(context.Background()); err != nil {
				if r.metrics != nil {
					r.metrics.AuditFlushErrors.Inc()
				}
				r.log.Error().Err(err).Msg("audit flush failed")
			}
		case <-r.stopCh:
			return
		}
	}
}

// Close stops the flush loop and drains remaining rows.
func (r *AuditRecorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = r.Flush(ctx)
	})
	return err
}

var _ ports.AuditRecorder = (*AuditRecorder)(nil)
