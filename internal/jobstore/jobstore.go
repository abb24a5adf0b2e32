// Package jobstore keeps the status of asynchronous export jobs.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"idcards/internal/progress"
	"idcards/internal/quality"
)

var ErrNotFound = errors.New("jobstore: job not found")

type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the externally visible state of one job.
type Status struct {
	ID        string          `json:"id"`
	State     State           `json:"state"`
	Mode      string          `json:"mode"`
	Operator  string          `json:"operator,omitempty"`
	Current   int             `json:"current"`
	Total     int             `json:"total"`
	Step      progress.Status `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Location  string          `json:"location,omitempty"`
	Pages     int             `json:"pages,omitempty"`
	Issues    []quality.Issue `json:"issues,omitempty"`
	Warnings  []quality.Issue `json:"warnings,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Store interface {
	Put(ctx context.Context, s Status) error
	Get(ctx context.Context, id string) (Status, error)
}

// Update loads id, applies fn and stores the result.
func Update(ctx context.Context, st Store, id string, fn func(*Status)) error {
	s, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(&s)
	s.UpdatedAt = time.Now().UTC()
	return st.Put(ctx, s)
}

// ProgressSink mirrors progress events into the job's status. Store errors
// are logged and never interrupt the export.
func ProgressSink(ctx context.Context, st Store, id string, log *slog.Logger) progress.Sink {
	return func(e progress.Event) {
		err := Update(ctx, st, id, func(s *Status) {
			s.Current, s.Total = e.Current, e.Total
			s.Step = e.Status
			s.Message = e.Message
		})
		if err != nil {
			log.Warn("jobstore: progress update failed", "job", id, "err", err)
		}
	}
}

// Memory is a process-local Store. Entries expire after ttl.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	jobs map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	status  Status
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{ttl: ttl, jobs: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) Put(_ context.Context, s Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.jobs {
		if now.After(e.expires) {
			delete(m.jobs, id)
		}
	}
	m.jobs[s.ID] = memEntry{status: s, expires: now.Add(m.ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok || m.now().After(e.expires) {
		return Status{}, ErrNotFound
	}
	return e.status, nil
}

// Redis stores statuses as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "idcards:job:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, s Status) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+s.ID, raw, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, id string) (Status, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, ErrNotFound
	}
	if err != nil {
		return Status{}, err
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Status{}, err
	}
	return s, nil
}
