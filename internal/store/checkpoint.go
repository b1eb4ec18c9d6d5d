package store

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/api/types"
)

// Saver is the part of Store the checkpointer needs.
type Saver interface {
	Save(*types.Database) error
}

// Checkpointer flushes the in-memory database to durable storage on a
// polled wall clock. Tick is called at every unit of work in the
// closure loop but only writes once per interval; Flush always writes.
// The clock is injectable so tests can simulate time.
type Checkpointer struct {
	saver    Saver
	db       *types.Database
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

func NewCheckpointer(saver Saver, db *types.Database, interval time.Duration) *Checkpointer {
	c := &Checkpointer{
		saver:    saver,
		db:       db,
		interval: interval,
		now:      time.Now,
	}
	c.last = c.now()
	return c
}

// SetClock replaces the wall clock. Test hook.
func (c *Checkpointer) SetClock(now func() time.Time) {
	c.now = now
	c.last = now()
}

// Tick writes the database if the checkpoint interval has elapsed.
func (c *Checkpointer) Tick() error {
	now := c.now()
	if now.Sub(c.last) <= c.interval {
		return nil
	}
	logrus.Info("Writing state checkpoint...")
	if err := c.saver.Save(c.db); err != nil {
		return err
	}
	c.last = now
	return nil
}

// Flush writes the database unconditionally.
func (c *Checkpointer) Flush() error {
	if err := c.saver.Save(c.db); err != nil {
		return err
	}
	c.last = c.now()
	return nil
}
