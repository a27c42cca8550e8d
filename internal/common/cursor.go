package common

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the resume position of a descending (time, id) scan.
type Cursor struct {
	Time time.Time
	ID   string
}

func EncodeCursor(t time.Time, id string) string {
	raw := strconv.FormatInt(t.UnixNano(), 10) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	ts, id, found := strings.Cut(string(raw), "|")
	if !found || id == "" {
		return Cursor{}, ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Time: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// ParseCursorParam treats an empty parameter as "start from the top".
func ParseCursorParam(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	c, err := DecodeCursor(s)
	if err != nil {
		return nil, BadRequest("Invalid cursor")
	}
	return &c, nil
}

// Paginate trims a page fetched with limit+1 rows and returns the cursor of its last item.
func Paginate[T any](items []T, limit int, position func(T) (time.Time, string)) ([]T, string) {
	if len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	t, id := position(items[len(items)-1])
	return items, EncodeCursor(t, id)
}
