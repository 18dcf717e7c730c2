package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

const messagesSchema = `
CREATE TABLE IF NOT EXISTS ` + chatmodel.MsgTableName + ` (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	content    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	username   TEXT NOT NULL,
	role       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PgMessageStore keeps messages in Postgres. seq gives a total order that
// does not depend on clock resolution.
type PgMessageStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPgMessageStore(pool *pgxpool.Pool) *PgMessageStore {
	return &PgMessageStore{pool: pool, now: time.Now}
}

func (s *PgMessageStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, messagesSchema)
	return errs.WrapMsg(err, "create messages table")
}

func (s *PgMessageStore) Create(ctx context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error) {
	if err := checkCreate(content, author); err != nil {
		return nil, err
	}
	msg := chatmodel.Message{
		ID:        newMessageID(),
		Content:   content,
		User:      author,
		CreatedAt: utcMilli(s.now()),
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO `+chatmodel.MsgTableName+` (id, content, user_id, username, role, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.Content, author.ID, author.Username, author.Role, msg.CreatedAt)
	if err != nil {
		return nil, errs.ErrPersist.WrapMsg(err.Error(), "id", msg.ID)
	}
	return &msg, nil
}

// List pages backwards by seq. An unknown Before yields an empty page.
func (s *PgMessageStore) List(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error) {
	q = q.Normalize()
	const cols = `id, content, user_id, username, role, created_at`
	var (
		sql  string
		args []any
	)
	if q.Before == "" {
		sql = `SELECT ` + cols + ` FROM ` + chatmodel.MsgTableName + ` ORDER BY seq DESC LIMIT $1`
		args = []any{q.Limit + 1}
	} else {
		sql = `SELECT ` + cols + ` FROM ` + chatmodel.MsgTableName + `
WHERE seq < (SELECT seq FROM ` + chatmodel.MsgTableName + ` WHERE id = $1)
ORDER BY seq DESC LIMIT $2`
		args = []any{q.Before, q.Limit + 1}
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, false, errs.WrapMsg(err, "list messages")
	}
	defer rows.Close()

	out := make([]chatmodel.Message, 0, q.Limit+1)
	for rows.Next() {
		var m chatmodel.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.User.ID, &m.User.Username, &m.User.Role, &m.CreatedAt); err != nil {
			return nil, false, errs.WrapMsg(err, "scan message")
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, errs.WrapMsg(err, "iterate messages")
	}
	page, more := newestFirstPage(out, q.Limit)
	return page, more, nil
}
