package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/facebook/flipper-sub000/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// farFuture scores index entries that never expire.
const farFuture = 4102444800 // 2100-01-01

// Archive implements ports.SnapshotArchive. Dumps are JSON strings indexed
// by a sorted set scored by expiry, pruned lazily on List.
type Archive struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.SnapshotArchive = (*Archive)(nil)

type ArchiveOption func(*Archive)

// WithTTL expires dumps after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) ArchiveOption {
	return func(a *Archive) {
		a.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) ArchiveOption {
	return func(a *Archive) {
		a.prefix = prefix
	}
}

// NewArchive creates an archive on client.
func NewArchive(client backend.UniversalClient, opts ...ArchiveOption) *Archive {
	a := &Archive{
		client: client,
		prefix: "inspector:snapshot:",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archive) key(name string) string { return a.prefix + name }

func (a *Archive) indexKey() string { return a.prefix + "index" }

// Save stores snap under its name, replacing any earlier dump.
func (a *Archive) Save(ctx context.Context, snap *ports.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	score := float64(time.Now().Add(a.ttl).Unix())
	if a.ttl == 0 {
		score = farFuture
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, a.key(snap.Name), data, a.ttl)
	pipe.ZAdd(ctx, a.indexKey(), backend.Z{Score: score, Member: snap.Name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load returns the dump saved under name.
func (a *Archive) Load(ctx context.Context, name string) (*ports.Snapshot, error) {
	val, err := a.client.Get(ctx, a.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap ports.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// List returns the names of live dumps.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := a.client.ZRemRangeByScore(ctx, a.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired snapshots: %w", err)
	}
	names, err := a.client.ZRange(ctx, a.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return names, nil
}
