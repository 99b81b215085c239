package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sublet-scraper/models"
)

// RedisStore keeps each table as an append-only Redis list of JSON rows.
// Lists are only ever RPUSHed, never trimmed or rewritten.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type redisSeen struct {
	ExactKey       string    `json:"exact_key"`
	FuzzySignature string    `json:"fuzzy_signature"`
	Price          int       `json:"price,omitempty"`
	Tier           int       `json:"tier,omitempty"`
	Source         string    `json:"source"`
	FirstSeen      time.Time `json:"first_seen"`
}

type redisCursor struct {
	Key    string    `json:"key"`
	Cursor time.Time `json:"cursor"`
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect to %s: %w", addr, err)
	}
	return newRedisStoreWithClient(client, prefix), nil
}

func newRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(name string) string { return r.prefix + ":" + name }

// ReadAllSeen returns the seen list plus the exact key of every listing
// that has no seen record.
func (r *RedisStore) ReadAllSeen(ctx context.Context) ([]models.SeenRecord, error) {
	vals, err := r.client.LRange(ctx, r.key("seen"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read seen: %w", err)
	}
	records := make([]models.SeenRecord, 0, len(vals))
	for _, v := range vals {
		var s redisSeen
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			continue
		}
		records = append(records, models.SeenRecord{
			ExactKey:       s.ExactKey,
			FuzzySignature: s.FuzzySignature,
			Price:          s.Price,
			Tier:           models.Tier(s.Tier),
			Source:         models.Source(s.Source),
			FirstSeenAt:    s.FirstSeen,
		})
	}

	listings, err := r.client.LRange(ctx, r.key("listings"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read listings: %w", err)
	}
	idField := ListingHeader[ListingIDColumn]
	keys := make([]string, 0, len(listings))
	for _, v := range listings {
		var row map[string]string
		if err := json.Unmarshal([]byte(v), &row); err == nil {
			keys = append(keys, row[idField])
		}
	}
	return FoldListingKeys(records, keys), nil
}

func (r *RedisStore) AppendSeen(ctx context.Context, records []models.SeenRecord) error {
	vals := make([]interface{}, 0, len(records))
	for _, rec := range records {
		vals = append(vals, mustJSON(redisSeen{
			ExactKey:       rec.ExactKey,
			FuzzySignature: rec.FuzzySignature,
			Price:          rec.Price,
			Tier:           int(rec.Tier),
			Source:         string(rec.Source),
			FirstSeen:      rec.FirstSeenAt,
		}))
	}
	return r.push(ctx, "seen", vals)
}

func (r *RedisStore) AppendListings(ctx context.Context, listings []*models.ScoredListing) error {
	vals := make([]interface{}, 0, len(listings))
	for _, sl := range listings {
		row := ListingRow(sl)
		record := make(map[string]string, len(row))
		for i, h := range ListingHeader {
			record[h] = row[i]
		}
		vals = append(vals, mustJSON(record))
	}
	return r.push(ctx, "listings", vals)
}

func (r *RedisStore) ReadCursors(ctx context.Context) (map[string]time.Time, error) {
	vals, err := r.client.LRange(ctx, r.key("cursors"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read cursors: %w", err)
	}
	cursors := make(map[string]time.Time)
	for _, v := range vals {
		var c redisCursor
		if err := json.Unmarshal([]byte(v), &c); err == nil && c.Key != "" {
			cursors[c.Key] = c.Cursor
		}
	}
	return cursors, nil
}

func (r *RedisStore) AppendCursors(ctx context.Context, cursors map[string]time.Time) error {
	vals := make([]interface{}, 0, len(cursors))
	for _, row := range CursorRows(cursors) {
		vals = append(vals, mustJSON(redisCursor{Key: row[0], Cursor: cursors[row[0]]}))
	}
	return r.push(ctx, "cursors", vals)
}

func (r *RedisStore) AppendRunLog(ctx context.Context, report *models.RunReport) error {
	vals := make([]interface{}, 0, len(report.Sources))
	for _, row := range RunLogRows(report) {
		record := make(map[string]string, len(row))
		for i, h := range RunLogHeader {
			record[h] = row[i]
		}
		vals = append(vals, mustJSON(record))
	}
	return r.push(ctx, "runs", vals)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) push(ctx context.Context, name string, vals []interface{}) error {
	if len(vals) == 0 {
		return nil
	}
	if err := r.client.RPush(ctx, r.key(name), vals...).Err(); err != nil {
		return fmt.Errorf("redis: append %s: %w", name, err)
	}
	return nil
}

// mustJSON encodes rows built from strings and times, which cannot fail.
func mustJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
