package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

// newMessageID returns a time-ordered UUID so ids sort the same way as
// creation time.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func checkCreate(content string, author usermodel.Identity) error {
	if strings.TrimSpace(content) == "" {
		return errs.ErrArgs.WrapMsg("empty content")
	}
	if !author.Valid() {
		return errs.ErrArgs.WrapMsg("author id is empty")
	}
	return nil
}

// newestFirstPage turns up to limit+1 rows read newest first into one page in
// chronological order, reporting whether older rows remain.
func newestFirstPage(rows []chatmodel.Message, limit int) ([]chatmodel.Message, bool) {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, hasMore
}

// utcMilli truncates to what every backend can round-trip.
func utcMilli(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
