package trafficgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
)

// Sink durably receives one batch of transaction records.
type Sink interface {
	Dispatch(ctx context.Context, batch []*TransactionRecord) error
}

// FileSink serializes each batch as one pretty-printed JSON document under
// a uniquely named key.
type FileSink struct {
	bucket *blob.Bucket
	log    zerolog.Logger
}

func NewFileSink(bucket *blob.Bucket, log zerolog.Logger) *FileSink {
	return &FileSink{
		bucket: bucket,
		log:    log,
	}
}

func (s *FileSink) Dispatch(ctx context.Context, batch []*TransactionRecord) error {

	if len(batch) == 0 {
		return nil
	}

	body, err := json.MarshalIndent(batch, "", "    ")

	if err != nil {
		return fmt.Errorf("%w: encode batch: %v", ErrSinkWrite, err)
	}

	key := fmt.Sprintf("batch_%s.json", strings.ReplaceAll(uuid.NewString(), "-", ""))

	w, err := s.bucket.NewWriter(ctx, key, nil)

	if err != nil {
		return fmt.Errorf("%w: create writer for %s: %v", ErrSinkWrite, key, err)
	}

	_, err = w.Write(body)

	if err != nil {
		w.Close()
		return fmt.Errorf("%w: write %s: %v", ErrSinkWrite, key, err)
	}

	err = w.Close()

	if err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrSinkWrite, key, err)
	}

	s.log.Info().
		Str("key", key).
		Int("records", len(batch)).
		Msg("batch saved to file")

	return nil
}

const (
	defaultPublishTimeout  = 30 * time.Second
	defaultPublishAttempts = 5
	publishBackoffInitial  = 500 * time.Millisecond
)

type QueueSinkOptions struct {
	// MaxUnitBytes caps the encoded payload accepted per dispatch, like a
	// broker message-batch primitive. Records past the cap are dropped
	// from that dispatch, not failed. Zero means unbounded.
	MaxUnitBytes int
	// PublishTimeout bounds each publish attempt. Zero means 30s.
	PublishTimeout time.Duration
	// MaxAttempts bounds retries per message. Zero means 5.
	MaxAttempts int
}

// QueueSink publishes each record of a batch as one message.
type QueueSink struct {
	topic   *pubsub.Topic
	opts    QueueSinkOptions
	dropped int
	log     zerolog.Logger
}

func NewQueueSink(topic *pubsub.Topic, opts QueueSinkOptions, log zerolog.Logger) *QueueSink {

	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultPublishAttempts
	}

	return &QueueSink{
		topic: topic,
		opts:  opts,
		log:   log,
	}
}

func (s *QueueSink) Dispatch(ctx context.Context, batch []*TransactionRecord) error {

	unitBytes := 0

	for i, record := range batch {

		body, err := json.Marshal(record)

		if err != nil {
			return fmt.Errorf("%w: encode record %s: %v", ErrSinkWrite, record.LaneTransID, err)
		}

		if s.opts.MaxUnitBytes > 0 && unitBytes+len(body) > s.opts.MaxUnitBytes {

			// The publish unit is full. Stop adding, keep the run going.
			s.dropped += len(batch) - i

			s.log.Warn().
				Int("dropped", len(batch)-i).
				Int("unit_bytes", unitBytes).
				Msg("publish unit full, truncating batch")

			return nil
		}

		err = s.publish(ctx, body)

		if err != nil {
			return fmt.Errorf("%w: publish record %s: %v", ErrSinkWrite, record.LaneTransID, err)
		}

		unitBytes += len(body)
	}

	s.log.Info().
		Int("records", len(batch)).
		Msg("batch published to queue")

	return nil
}

// Dropped reports how many records were discarded by full publish units.
func (s *QueueSink) Dropped() int {
	return s.dropped
}

// publish retries transient failures with exponential backoff. Records are
// independent and idempotent to re-send, so a retry has no side effects
// beyond the duplicate delivery itself.
func (s *QueueSink) publish(ctx context.Context, body []byte) error {

	var err error
	backoff := publishBackoffInitial

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {

		pctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
		err = s.topic.Send(pctx, &pubsub.Message{Body: body})
		cancel()

		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return err
		}

		s.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("publish failed, retrying")

		time.Sleep(backoff)
		backoff *= 2
	}

	return err
}

// BatchDispatcher accumulates records into bounded batches and flushes each
// full batch to the configured sink. Drain flushes whatever remains.
type BatchDispatcher struct {
	sink    Sink
	size    int
	batch   []*TransactionRecord
	count   int
	flushes int
	log     zerolog.Logger
}

func NewBatchDispatcher(sink Sink, size int, log zerolog.Logger) (*BatchDispatcher, error) {

	if size < 1 {
		return nil, fmt.Errorf("%w: batch size %d", ErrConfiguration, size)
	}

	d := &BatchDispatcher{
		sink:  sink,
		size:  size,
		batch: make([]*TransactionRecord, 0, size),
		log:   log,
	}

	return d, nil
}

// Offer appends record to the current batch, flushing when it fills.
func (d *BatchDispatcher) Offer(ctx context.Context, record *TransactionRecord) error {

	d.batch = append(d.batch, record)

	if len(d.batch) >= d.size {
		return d.flush(ctx)
	}

	return nil
}

// Drain flushes any remaining partial batch. Call once at end of run.
func (d *BatchDispatcher) Drain(ctx context.Context) error {

	if len(d.batch) == 0 {
		return nil
	}

	return d.flush(ctx)
}

// Count reports the cumulative number of records flushed so far.
func (d *BatchDispatcher) Count() int {
	return d.count
}

// Flushes reports how many batches have been dispatched.
func (d *BatchDispatcher) Flushes() int {
	return d.flushes
}

func (d *BatchDispatcher) flush(ctx context.Context) error {

	err := d.sink.Dispatch(ctx, d.batch)

	if err != nil {
		return err
	}

	d.count += len(d.batch)
	d.flushes++
	d.batch = make([]*TransactionRecord, 0, d.size)

	return nil
}
