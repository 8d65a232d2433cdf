package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"shadow/internal/docstore"
	"shadow/pkg/platform/sentinel"
)

const keyPrefix = "shadow:"

// upsertScript applies set-on-insert fields only when the hash is new, then
// the patch, then indexes the key. Running as one script makes it atomic.
//
// KEYS[1] document hash, KEYS[2] collection index set.
// ARGV[1] number of set-on-insert pairs, followed by those pairs, then the patch pairs.
var upsertScript = redis.NewScript(`
local n = tonumber(ARGV[1])
local created = redis.call('EXISTS', KEYS[1]) == 0
if created and n > 0 then
  local fields = {}
  for i = 2, 1 + 2 * n do fields[#fields + 1] = ARGV[i] end
  redis.call('HSET', KEYS[1], unpack(fields))
end
local patch = {}
for i = 2 + 2 * n, #ARGV do patch[#patch + 1] = ARGV[i] end
if #patch > 0 then
  redis.call('HSET', KEYS[1], unpack(patch))
end
redis.call('SADD', KEYS[2], KEYS[1])
return 1
`)

// Store keeps each document as a hash of JSON-encoded field values and each
// collection as a set of document keys.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func docKey(collection, key string) string {
	return keyPrefix + "doc:" + collection + ":" + key
}

func indexKey(collection string) string {
	return keyPrefix + "idx:" + collection
}

func (s *Store) FindOne(ctx context.Context, collection, key string) (docstore.Document, error) {
	fields, err := s.client.HGetAll(ctx, docKey(collection, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, sentinel.ErrNotFound)
	}
	return decode(fields)
}

func (s *Store) Upsert(ctx context.Context, collection, key string, patch, setOnInsert docstore.Document) error {
	insertArgs, err := encodePairs(setOnInsert)
	if err != nil {
		return err
	}
	patchArgs, err := encodePairs(patch)
	if err != nil {
		return err
	}

	args := make([]any, 0, 1+len(insertArgs)+len(patchArgs))
	args = append(args, len(insertArgs)/2)
	args = append(args, insertArgs...)
	args = append(args, patchArgs...)

	keys := []string{docKey(collection, key), indexKey(collection)}
	if err := upsertScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// FindMany loads the whole collection and filters in process. Collections are
// small enough that a secondary index per field is not worth maintaining.
func (s *Store) FindMany(ctx context.Context, collection string, filter docstore.Filter, sort *docstore.Sort, limit int) ([]docstore.Document, error) {
	members, err := s.client.SMembers(ctx, indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, member := range members {
		cmds[i] = pipe.HGetAll(ctx, member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	var matched []docstore.Document
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		doc, err := decode(fields)
		if err != nil {
			return nil, err
		}
		if docstore.Match(doc, filter) {
			matched = append(matched, doc)
		}
	}

	docstore.SortDocuments(matched, sort)
	return docstore.Truncate(matched, limit), nil
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

func encodePairs(doc docstore.Document) ([]any, error) {
	pairs := make([]any, 0, 2*len(doc))
	for field, value := range doc {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", field, err)
		}
		pairs = append(pairs, field, string(raw))
	}
	return pairs, nil
}

func decode(fields map[string]string) (docstore.Document, error) {
	doc := make(docstore.Document, len(fields))
	for field, raw := range fields {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode field %s: %w", field, err)
		}
		doc[field] = value
	}
	return doc, nil
}
