package community

import (
	"context"
	"sync"

	"go-amadeus/internal/database"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

const DefaultFlushEvery = 20

type StatsStore interface {
	AddMessageCount(ctx context.Context, userID string, delta int64) error
	TopMessageStats(ctx context.Context, limit int) ([]database.MessageStat, error)
}

// MessageCounter buffers per-user message counts and adds them to the store
// once a user has flushEvery unsaved messages.
type MessageCounter struct {
	mu         sync.Mutex
	store      StatsStore
	flushEvery int64
	pending    map[string]int64
}

func NewMessageCounter(store StatsStore, flushEvery int) *MessageCounter {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &MessageCounter{
		store:      store,
		flushEvery: int64(flushEvery),
		pending:    make(map[string]int64),
	}
}

func (c *MessageCounter) OnMessage(ctx context.Context, ev models.MessageEvent) error {
	if ev.AuthorBot || ev.GuildID == "" {
		return nil
	}

	c.mu.Lock()
	c.pending[ev.AuthorID]++
	n := c.pending[ev.AuthorID]
	if n < c.flushEvery {
		c.mu.Unlock()
		return nil
	}
	delete(c.pending, ev.AuthorID)
	c.mu.Unlock()

	return c.save(ctx, ev.AuthorID, n)
}

// FlushAll writes every pending count. Counts that fail to save stay pending.
func (c *MessageCounter) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]int64)
	c.mu.Unlock()

	var firstErr error
	for userID, n := range pending {
		if err := c.save(ctx, userID, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *MessageCounter) queued(userID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[userID]
}

func (c *MessageCounter) Top(ctx context.Context, limit int) ([]database.MessageStat, error) {
	return c.store.TopMessageStats(ctx, limit)
}

func (c *MessageCounter) save(ctx context.Context, userID string, n int64) error {
	if err := c.store.AddMessageCount(ctx, userID, n); err != nil {
		logging.Warn("[STATS] Failed to save %d messages of %s: %v", n, userID, err)
		c.mu.Lock()
		c.pending[userID] += n
		c.mu.Unlock()
		return err
	}
	return nil
}
