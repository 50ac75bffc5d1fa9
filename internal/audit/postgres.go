package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/telemetry"
)

// execer is the slice of pgxpool.Pool the sink needs. Narrowed for tests.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSinkConfig holds tuning knobs for the async audit writer.
type PostgresSinkConfig struct {
	// BufferSize is the capacity of the in-flight event channel.
	// Default: 1024. Events beyond capacity are dropped and logged.
	BufferSize int

	// MaxBatchSize is the maximum number of events written per flush.
	// Default: 50
	MaxBatchSize int

	// FlushInterval is the maximum time an event waits before being flushed.
	// Default: 2s
	FlushInterval time.Duration

	// MaxFlushTries bounds the retry attempts for one flush.
	// Default: 3
	MaxFlushTries uint
}

func (c *PostgresSinkConfig) applyDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = 1024
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 50
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 2 * time.Second
	}
	if c.MaxFlushTries == 0 {
		c.MaxFlushTries = 3
	}
}

// PostgresSink persists audit events to the audit_events table. Writes happen
// on a background goroutine so Record never blocks the request path; when the
// buffer is full or the database stays unavailable past the retry budget,
// events are logged and dropped.
type PostgresSink struct {
	db  execer
	cfg PostgresSinkConfig

	ch     chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPostgresSink creates the sink and starts its background writer.
func NewPostgresSink(db execer, cfg PostgresSinkConfig) *PostgresSink {
	cfg.applyDefaults()

	s := &PostgresSink{
		db:     db,
		cfg:    cfg,
		ch:     make(chan Event, cfg.BufferSize),
		stopCh: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s
}

// Record queues the event for persistence. Never blocks: if the buffer is
// full the event is dropped with a log line.
func (s *PostgresSink) Record(ctx context.Context, event Event) {
	select {
	case s.ch <- event:
	default:
		telemetry.GetMetrics().AuditEventsDropped.Add(ctx, 1)
		log.Warn().
			Str("event_type", event.Type).
			Str("principal_id", event.PrincipalID).
			Msg("audit buffer full, dropping event")
	}
}

// Close flushes buffered events and stops the background writer.
func (s *PostgresSink) Close() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *PostgresSink) writeLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, s.cfg.MaxBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case event := <-s.ch:
			batch = append(batch, event)
			if len(batch) >= s.cfg.MaxBatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-s.stopCh:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case event := <-s.ch:
					batch = append(batch, event)
					if len(batch) >= s.cfg.MaxBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// flush writes one batch with bounded exponential backoff. On persistent
// failure the batch is dropped; audit is best-effort by contract.
func (s *PostgresSink) flush(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	operation := func() (struct{}, error) {
		return struct{}{}, s.insertBatch(ctx, batch)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.cfg.MaxFlushTries),
	)
	if err != nil {
		telemetry.GetMetrics().AuditEventsDropped.Add(ctx, int64(len(batch)))
		log.Error().Err(err).Int("count", len(batch)).Msg("failed to persist audit events, dropping batch")
	}
}

func (s *PostgresSink) insertBatch(ctx context.Context, batch []Event) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO audit_events (event_id, event_type, principal_id, detail, created_at) VALUES ")

	args := make([]any, 0, len(batch)*5)
	for i, event := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)

		detail, err := json.Marshal(event.Detail)
		if err != nil {
			detail = []byte("{}")
		}

		var principalID any
		if event.PrincipalID != "" {
			principalID = event.PrincipalID
		}

		args = append(args, event.ID, event.Type, principalID, detail, event.CreatedAt)
	}

	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert audit events: %w", err)
	}

	return nil
}
