package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/retail-intelligence/internal/platform/envutil"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const defaultPrefix = "retail"

// Announcement is published on the artifacts channel after a set of keys has
// been written, so consumers never read a half-updated set.
type Announcement struct {
	RunID       string    `json:"run_id"`
	Keys        []string  `json:"keys"`
	PublishedAt time.Time `json:"published_at"`
}

// ArtifactPublisher fans trained artifacts out to downstream readers.
type ArtifactPublisher interface {
	Publish(ctx context.Context, runID string, items map[string]any) (*Announcement, error)
	Watch(ctx context.Context, onMsg func(a Announcement)) error
	Close() error
}

type publisher struct {
	log     *logger.Logger
	rdb     *goredis.Client
	prefix  string
	channel string
	ttl     time.Duration
}

// NewArtifactPublisher connects to REDIS_ADDR. It returns (nil, nil) when
// REDIS_ADDR is unset so callers can treat publication as optional.
func NewArtifactPublisher(log *logger.Logger) (ArtifactPublisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	prefix := strings.Trim(envutil.String("REDIS_PREFIX", defaultPrefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &publisher{
		log:     log.With("client", "RedisArtifactPublisher"),
		rdb:     rdb,
		prefix:  prefix,
		channel: ChannelName(prefix),
		ttl:     time.Duration(envutil.Int("REDIS_ARTIFACT_TTL_HOURS", 0)) * time.Hour,
	}, nil
}

// KeyName is where an artifact lands: <prefix>:artifacts:<name>.
func KeyName(prefix, name string) string {
	return prefix + ":artifacts:" + name
}

func ChannelName(prefix string) string {
	return prefix + ":artifacts:updated"
}

// EncodeItems marshals every item up front so a bad value fails the publish
// before anything is written.
func EncodeItems(prefix string, items map[string]any) (map[string][]byte, []string, error) {
	out := make(map[string][]byte, len(items))
	keys := make([]string, 0, len(items))
	for name, v := range items {
		if strings.TrimSpace(name) == "" {
			return nil, nil, fmt.Errorf("artifact with empty name")
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s: %w", name, err)
		}
		key := KeyName(prefix, name)
		out[key] = raw
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return out, keys, nil
}

func (p *publisher) Publish(ctx context.Context, runID string, items map[string]any) (*Announcement, error) {
	if p == nil || p.rdb == nil {
		return nil, fmt.Errorf("redis publisher not initialized")
	}
	encoded, keys, err := EncodeItems(p.prefix, items)
	if err != nil {
		return nil, err
	}
	pipe := p.rdb.TxPipeline()
	for _, k := range keys {
		pipe.Set(ctx, k, encoded[k], p.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis write artifacts: %w", err)
	}

	a := &Announcement{RunID: runID, Keys: keys, PublishedAt: time.Now().UTC()}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return nil, fmt.Errorf("redis announce: %w", err)
	}
	p.log.Info("artifacts published", "run_id", runID, "keys", len(keys), "channel", p.channel)
	return a, nil
}

// Watch subscribes to announcements until ctx is done.
func (p *publisher) Watch(ctx context.Context, onMsg func(a Announcement)) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var a Announcement
				if err := json.Unmarshal([]byte(m.Payload), &a); err != nil {
					p.log.Warn("bad artifact announcement", "error", err)
					continue
				}
				onMsg(a)
			}
		}
	}()
	return nil
}

func (p *publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
