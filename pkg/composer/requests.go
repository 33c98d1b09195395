package composer

import (
	"sort"
	"time"
)

const maxRecords = 200

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStale     = "stale"
	StatusError     = "error"
)

// RequestRecord tracks one authoritative round trip.
type RequestRecord struct {
	IdempotencyKey string
	CorrelationID  string
	Seq            uint64
	Status         string // running|completed|stale|error

	StartedAt   time.Time
	CompletedAt time.Time

	Error string
}

func (c *Composer) startRecordLocked(key, correlationID string) *RequestRecord {
	if c.requests == nil {
		c.requests = map[string]*RequestRecord{}
	}
	c.seq++
	rec := &RequestRecord{
		IdempotencyKey: key,
		CorrelationID:  correlationID,
		Seq:            c.seq,
		Status:         StatusRunning,
		StartedAt:      time.Now(),
	}
	c.requests[key] = rec
	c.inflight++
	c.pruneLocked()
	return rec
}

func (c *Composer) finishRecordLocked(rec *RequestRecord, status string, err error) {
	rec.Status = status
	rec.CompletedAt = time.Now()
	if err != nil {
		rec.Error = err.Error()
	}
	c.inflight--
}

func (c *Composer) pruneLocked() {
	if len(c.requests) <= maxRecords {
		return
	}
	var oldest *RequestRecord
	for _, r := range c.requests {
		if r.Status == StatusRunning {
			continue
		}
		if oldest == nil || r.Seq < oldest.Seq {
			oldest = r
		}
	}
	if oldest != nil {
		delete(c.requests, oldest.IdempotencyKey)
	}
}

// Record returns a copy of the record for an idempotency key.
func (c *Composer) Record(key string) (RequestRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.requests[key]
	if !ok {
		return RequestRecord{}, false
	}
	return *rec, true
}

// Records returns all tracked records in issue order.
func (c *Composer) Records() []RequestRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RequestRecord, 0, len(c.requests))
	for _, r := range c.requests {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
