// Package redis provides a writer.Destination that appends to a Redis string.
//
// Every Append is a single APPEND command, so data is visible to every other
// Redis client as soon as it returns. Sync optionally blocks on WAIT until a
// number of replicas have acknowledged the writes.
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	dest, err := redis.New(redis.Config{Client: rdb, Key: "journal:42"})
//	w := writer.New(dest, writer.DefaultConfig())
package redis

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	bfcontext "github.com/vnykmshr/byteflow/pkg/common/context"
	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/common/validation"
	"github.com/vnykmshr/byteflow/pkg/streaming/writer"
)

// Client is the subset of goredis.UniversalClient a Destination needs.
type Client interface {
	Append(ctx context.Context, key, value string) *goredis.IntCmd
	StrLen(ctx context.Context, key string) *goredis.IntCmd
	Wait(ctx context.Context, numSlaves int, timeout time.Duration) *goredis.IntCmd
	Close() error
}

// Config holds configuration for a Redis destination.
type Config struct {
	// Client issues the commands. Any goredis.UniversalClient works.
	Client Client

	// Key is the string key appended to.
	Key string

	// Timeout bounds each command. Zero means no per-command deadline.
	Timeout time.Duration

	// Replicas is the number of replicas Sync waits for. Zero makes Sync a no-op.
	Replicas int

	// ReplicaTimeout is the WAIT timeout passed to Redis. Zero blocks until
	// the replicas acknowledge.
	ReplicaTimeout time.Duration

	// CloseClient closes Client when the destination is closed.
	CloseClient bool
}

// DefaultConfig returns a configuration with a 500ms command timeout.
func DefaultConfig() Config {
	return Config{
		Timeout:        500 * time.Millisecond,
		ReplicaTimeout: time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if err := validation.ValidateNotNil("redis", "Client", c.Client); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("redis", "Key", c.Key); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return bferrors.NewValidationError("redis", "Timeout", c.Timeout, "must be non-negative")
	}
	if err := validation.ValidateNonNegative("redis", "Replicas", c.Replicas); err != nil {
		return err
	}
	if c.ReplicaTimeout < 0 {
		return bferrors.NewValidationError("redis", "ReplicaTimeout", c.ReplicaTimeout, "must be non-negative")
	}
	return nil
}

// Destination appends to a Redis string key.
type Destination struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	pos    uint64
}

// New creates a Destination for config.Key.
func New(config Config) (*Destination, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Destination{config: config, ctx: ctx, cancel: cancel}, nil
}

// Append issues APPEND. The position becomes the length Redis reports, which
// also accounts for appends made by other clients.
func (d *Destination) Append(p []byte) error {
	ctx, cancel := bfcontext.WithTimeoutOrCancel(d.ctx, d.config.Timeout)
	defer cancel()

	n, err := d.config.Client.Append(ctx, d.config.Key, string(p)).Result()
	if err != nil {
		return mapError(ctx, err)
	}
	d.pos = uint64(n)
	return nil
}

// Flush is a no-op: an acknowledged APPEND is already visible to every
// client of the server.
func (d *Destination) Flush() error {
	return nil
}

// Sync waits for Config.Replicas replicas to acknowledge all previous writes.
func (d *Destination) Sync() error {
	if d.config.Replicas == 0 {
		return nil
	}
	ctx, cancel := bfcontext.WithTimeoutOrCancel(d.ctx, d.commandTimeout(d.config.ReplicaTimeout))
	defer cancel()

	acked, err := d.config.Client.Wait(ctx, d.config.Replicas, d.config.ReplicaTimeout).Result()
	if err != nil {
		return mapError(ctx, err)
	}
	if acked < int64(d.config.Replicas) {
		return bferrors.Statusf(bferrors.CodeUnavailable,
			"%d of %d replicas acknowledged within %v", acked, d.config.Replicas, d.config.ReplicaTimeout)
	}
	return nil
}

// Tell returns the current length of the key.
func (d *Destination) Tell() (uint64, error) {
	ctx, cancel := bfcontext.WithTimeoutOrCancel(d.ctx, d.config.Timeout)
	defer cancel()

	n, err := d.config.Client.StrLen(ctx, d.config.Key).Result()
	if err != nil {
		return 0, mapError(ctx, err)
	}
	d.pos = uint64(n)
	return d.pos, nil
}

// Name returns "redis://<key>".
func (d *Destination) Name() (string, error) {
	return "redis://" + d.config.Key, nil
}

// Close cancels in-flight commands and, with Config.CloseClient, closes the client.
func (d *Destination) Close() error {
	d.cancel()
	if d.config.CloseClient {
		return mapError(nil, d.config.Client.Close())
	}
	return nil
}

// commandTimeout extends Timeout by the server-side wait so the client does
// not give up before Redis answers.
func (d *Destination) commandTimeout(serverWait time.Duration) time.Duration {
	if d.config.Timeout == 0 || serverWait == 0 {
		return 0
	}
	return d.config.Timeout + serverWait
}

// Provider opens Redis destinations, one key per path.
type Provider struct {
	// Config is the template for every destination. Key is ignored.
	Config Config

	// KeyPrefix is prepended to the path to form the key.
	KeyPrefix string
}

// OpenAppendable returns a Destination appending to KeyPrefix+path. The
// initial position is read with STRLEN by the writer.
func (p *Provider) OpenAppendable(path string) (writer.Destination, error) {
	config := p.Config
	config.Key = p.KeyPrefix + path
	config.CloseClient = false
	return New(config)
}

// mapError converts a go-redis error into an errors.Status.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	code := bferrors.CodeUnknown
	var redisErr goredis.Error
	var netErr net.Error
	switch {
	case ctx != nil && bfcontext.IsTimedOut(ctx, err):
		code = bferrors.CodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, goredis.ErrClosed):
		code = bferrors.CodeFailedPrecondition
	case errors.As(err, &redisErr):
		msg := redisErr.Error()
		switch {
		case strings.HasPrefix(msg, "WRONGTYPE"):
			code = bferrors.CodeFailedPrecondition
		case strings.HasPrefix(msg, "NOPERM"), strings.HasPrefix(msg, "NOAUTH"):
			code = bferrors.CodePermissionDenied
		case strings.HasPrefix(msg, "OOM"), strings.Contains(msg, "maximum allowed size"):
			code = bferrors.CodeResourceExhausted
		case strings.HasPrefix(msg, "LOADING"), strings.HasPrefix(msg, "READONLY"),
			strings.HasPrefix(msg, "MASTERDOWN"), strings.HasPrefix(msg, "CLUSTERDOWN"):
			code = bferrors.CodeUnavailable
		}
	case errors.As(err, &netErr):
		code = bferrors.CodeUnavailable
	}
	return &bferrors.Status{Code: code, Message: err.Error(), Cause: err}
}
