package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

const DefaultStream = "linker:chat:messages"

// RedisStreamStore appends messages to a capped Redis stream. Stream entry ids
// double as message ids, so history pages with XREVRANGE.
type RedisStreamStore struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
	now    func() time.Time
}

func NewRedisStreamStore(rdb redis.UniversalClient, stream string, maxLen int64) *RedisStreamStore {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = 100_000
	}
	return &RedisStreamStore{rdb: rdb, stream: stream, maxLen: maxLen, now: time.Now}
}

func (s *RedisStreamStore) Create(ctx context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error) {
	if err := checkCreate(content, author); err != nil {
		return nil, err
	}
	created := utcMilli(s.now())
	args := &redis.XAddArgs{
		Stream: s.stream,
		Approx: true,
		MaxLen: s.maxLen,
		Values: map[string]any{
			"content":    content,
			"user_id":    author.ID,
			"username":   author.Username,
			"role":       author.Role,
			"created_at": created.UnixMilli(),
		},
	}
	id, err := s.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return nil, errs.ErrPersist.WrapMsg(err.Error(), "stream", s.stream)
	}
	return &chatmodel.Message{ID: id, Content: content, User: author, CreatedAt: created}, nil
}

func (s *RedisStreamStore) List(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error) {
	q = q.Normalize()
	end := "+"
	if q.Before != "" {
		if !isStreamID(q.Before) {
			return nil, false, errs.ErrArgs.WrapMsg("invalid before id", "before", q.Before)
		}
		end = "(" + q.Before
	}
	entries, err := s.rdb.XRevRangeN(ctx, s.stream, end, "-", int64(q.Limit+1)).Result()
	if err != nil {
		return nil, false, errs.WrapMsg(err, "xrevrange", "stream", s.stream)
	}
	rows := make([]chatmodel.Message, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fromStreamEntry(e))
	}
	page, more := newestFirstPage(rows, q.Limit)
	return page, more, nil
}

func fromStreamEntry(e redis.XMessage) chatmodel.Message {
	msg := chatmodel.Message{
		ID:      e.ID,
		Content: field(e.Values, "content"),
		User: usermodel.Identity{
			ID:       field(e.Values, "user_id"),
			Username: field(e.Values, "username"),
			Role:     field(e.Values, "role"),
		},
	}
	ms, err := strconv.ParseInt(field(e.Values, "created_at"), 10, 64)
	if err != nil {
		// fall back to the time part of the entry id
		ms, _ = strconv.ParseInt(strings.SplitN(e.ID, "-", 2)[0], 10, 64)
	}
	msg.CreatedAt = time.UnixMilli(ms).UTC()
	return msg
}

func field(v map[string]any, k string) string {
	switch x := v[k].(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// isStreamID accepts "<ms>-<seq>" and bare "<ms>".
func isStreamID(s string) bool {
	ms, seq, found := strings.Cut(s, "-")
	if _, err := strconv.ParseUint(ms, 10, 64); err != nil {
		return false
	}
	if !found {
		return true
	}
	_, err := strconv.ParseUint(seq, 10, 64)
	return err == nil
}
