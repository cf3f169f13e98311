package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"collabcanvas/canvas"
)

const sinkTimeout = 5 * time.Second

// journalRecord is how an event leaves the process. The log is never read
// back: a restarted server starts from an empty canvas.
type journalRecord struct {
	Kind   string            `json:"kind"`
	UserID string            `json:"userId,omitempty"`
	User   *canvas.User      `json:"user,omitempty"`
	OpID   string            `json:"opId,omitempty"`
	Op     *canvas.Operation `json:"op,omitempty"`
	At     time.Time         `json:"at"`
}

func newJournalRecord(ev canvas.Event) journalRecord {
	return journalRecord{
		Kind:   ev.Kind.String(),
		UserID: ev.UserID,
		User:   ev.User,
		OpID:   ev.OpID,
		Op:     ev.Op,
		At:     ev.At.UTC(),
	}
}

type sink interface {
	name() string
	write(ctx context.Context, rec journalRecord, payload []byte) error
}

// publisher is the part of *redis.Client the journal uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type redisSink struct {
	pub     publisher
	channel string
}

func (s *redisSink) name() string { return "redis" }

func (s *redisSink) write(ctx context.Context, _ journalRecord, payload []byte) error {
	return s.pub.Publish(ctx, s.channel, payload).Err()
}

// execer is the part of *pgxpool.Pool the journal uses.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const createEventsTable = `CREATE TABLE IF NOT EXISTS canvas_events (
	id      BIGSERIAL PRIMARY KEY,
	kind    TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	op_id   TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL,
	at      TIMESTAMPTZ NOT NULL
)`

const insertEvent = `INSERT INTO canvas_events (kind, user_id, op_id, payload, at) VALUES ($1, $2, $3, $4, $5)`

type postgresSink struct {
	db execer
}

func (s *postgresSink) name() string { return "postgres" }

func (s *postgresSink) write(ctx context.Context, rec journalRecord, payload []byte) error {
	_, err := s.db.Exec(ctx, insertEvent, rec.Kind, rec.UserID, rec.OpID, payload, rec.At)
	return err
}

func ensureSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create canvas_events: %w", err)
	}
	return nil
}

// Journal forwards canvas events to the configured sinks from its own
// goroutine. Record never blocks: when the queue is full the event is
// counted and dropped.
type Journal struct {
	events  chan canvas.Event
	sinks   []sink
	dropped atomic.Uint64
	done    chan struct{}
}

func newJournal(buffer int, sinks ...sink) *Journal {
	return &Journal{
		events: make(chan canvas.Event, buffer),
		sinks:  sinks,
		done:   make(chan struct{}),
	}
}

func (j *Journal) Record(ev canvas.Event) {
	select {
	case j.events <- ev:
	default:
		if n := j.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("Journal queue full, %d event(s) dropped so far", n)
		}
	}
}

// run drains the queue until ctx is cancelled, then flushes what is left.
func (j *Journal) run(ctx context.Context) {
	defer close(j.done)
	for {
		select {
		case ev := <-j.events:
			j.write(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-j.events:
					j.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(ev canvas.Event) {
	rec := newJournalRecord(ev)
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("Error encoding journal record: %v", err)
		return
	}
	for _, s := range j.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := s.write(ctx, rec, payload); err != nil {
			log.Printf("Error writing %s event to %s: %v", rec.Kind, s.name(), err)
		}
		cancel()
	}
}

// Done is closed when run has returned.
func (j *Journal) Done() <-chan struct{} { return j.done }

func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func connectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	err := backoff.Retry(func() error {
		return rdb.Ping(ctx).Err()
	}, retryPolicy(ctx))
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	err = backoff.Retry(func() error {
		return pool.Ping(ctx)
	}, retryPolicy(ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// openSinks connects the backends named in cfg. The returned func closes them.
func openSinks(ctx context.Context, cfg Config) ([]sink, func(), error) {
	var sinks []sink
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RedisAddr != "" {
		rdb, err := connectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, func() { rdb.Close() })
		sinks = append(sinks, &redisSink{pub: rdb, channel: cfg.RedisChannel})
		log.Println("Connected to Redis successfully.")
	}
	if cfg.DatabaseURL != "" {
		pool, err := connectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, pool.Close)
		sinks = append(sinks, &postgresSink{db: pool})
		log.Println("Connected to PostgreSQL successfully.")
	}
	return sinks, closeAll, nil
}
