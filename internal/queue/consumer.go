package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"schedsync/internal/schedule"
	logx "schedsync/pkg/logx"
)

// blockInterval bounds each BLPOP so the loop notices context cancellation
// even on quiet queues.
const blockInterval = 5 * time.Second

// Reconciler is the entry point notifications are handed to.
// *reconcile.Gateway satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, rec schedule.Record) error
}

type Config struct {
	// Name is the logical queue name ("schedules" by default).
	Name string
}

type Consumer struct {
	cfg Config
	rdb *redis.Client
	gw  Reconciler
	log logx.Logger
}

func NewConsumer(cfg Config, rdb *redis.Client, gw Reconciler, log logx.Logger) *Consumer {
	if cfg.Name == "" {
		cfg.Name = "schedules"
	}
	return &Consumer{cfg: cfg, rdb: rdb, gw: gw, log: log}
}

// Run blocks consuming notifications until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	key := ReadyKey(c.cfg.Name)
	c.log.Info("notification consumer started", logx.String("key", key))

	for {
		if err := ctx.Err(); err != nil {
			c.log.Info("notification consumer stopped")
			return nil
		}

		res, err := c.rdb.BLPop(ctx, blockInterval, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timed out, queue empty
			}
			if ctx.Err() != nil {
				c.log.Info("notification consumer stopped")
				return nil
			}
			c.log.Warn("queue pop failed", logx.Err(err))
			// Brief pause so a dead redis does not spin the loop.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		// BLPop returns [key, value].
		if len(res) < 2 {
			continue
		}
		c.handle(ctx, res[1])
	}
}

func (c *Consumer) handle(ctx context.Context, payload string) {
	rec, err := decodeRecord([]byte(payload))
	if err != nil {
		c.log.Warn("dropping malformed notification", logx.Err(err))
		c.deadLetter(ctx, payload)
		return
	}

	// Failures are logged inside the gateway with identity context; a bad
	// notification never takes the consumer down.
	_ = c.gw.Reconcile(ctx, rec)
}

func (c *Consumer) deadLetter(ctx context.Context, payload string) {
	if err := c.rdb.RPush(ctx, DLQKey(c.cfg.Name), payload).Err(); err != nil {
		c.log.Warn("dead-letter push failed", logx.Err(err))
	}
}

// decodeRecord parses one notification payload. Unknown fields are rejected
// so publisher drift surfaces as a dead-letter instead of silent zero values.
func decodeRecord(b []byte) (schedule.Record, error) {
	var rec schedule.Record
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return schedule.Record{}, err
	}
	return rec, nil
}
