// Package redis stores ledger documents in Redis hashes. Saves are
// version-checked inside a WATCH/MULTI transaction.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"carpool/internal/log"
	"carpool/internal/remote"
)

const (
	fieldData    = "data"
	fieldVersion = "version"
	fieldUpdated = "updated"

	DefaultKeyPrefix = "carpool:ledger:"
)

type Client struct {
	rdb    goredis.UniversalClient
	prefix string
	now    func() time.Time
	logger *log.Logger
}

var _ remote.Endpoint = (*Client)(nil)

// NewFromURL connects using a redis:// URL.
func NewFromURL(url, prefix string, logger *log.Logger) (*Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(goredis.NewClient(opts), prefix, logger), nil
}

func New(rdb goredis.UniversalClient, prefix string, logger *log.Logger) *Client {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		rdb:    rdb,
		prefix: prefix,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentRedis),
	}
}

func (c *Client) key(owner string) string { return c.prefix + owner }

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Fetch implements remote.Endpoint.
func (c *Client) Fetch(ctx context.Context, owner string) (*remote.Document, error) {
	fields, err := c.rdb.HGetAll(ctx, c.key(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	doc, err := decodeHash(fields)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save implements remote.Endpoint.
func (c *Client) Save(ctx context.Context, owner string, doc remote.Document) error {
	key := c.key(owner)
	if doc.LastUpdated.IsZero() {
		doc.LastUpdated = c.now()
	}

	err := c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if cur != doc.Version {
			return remote.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeHash(doc.Data, cur+1, doc.LastUpdated))
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		c.logger.DebugContext(ctx, "Ledger saved", log.FieldOwner, owner, log.FieldVersion, doc.Version+1)
		return nil
	case errors.Is(err, remote.ErrVersionConflict), errors.Is(err, goredis.TxFailedErr):
		return remote.ErrVersionConflict
	default:
		return fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}
}

func encodeHash(data string, version int64, updated time.Time) map[string]any {
	return map[string]any{
		fieldData:    data,
		fieldVersion: version,
		fieldUpdated: updated.UTC().Format(time.RFC3339Nano),
	}
}

func decodeHash(fields map[string]string) (remote.Document, error) {
	doc := remote.Document{Data: fields[fieldData]}
	if v := fields[fieldVersion]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return doc, fmt.Errorf("invalid version %q", v)
		}
		doc.Version = n
	}
	if v := fields[fieldUpdated]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return doc, fmt.Errorf("invalid timestamp %q", v)
		}
		doc.LastUpdated = t
	}
	return doc, nil
}
