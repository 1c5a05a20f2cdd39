package data

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
)

// cursorPayload is the decoded form of a page cursor. It carries the ordering
// values of the row rather than just its id, so a cursor whose row was
// deleted still seeks to the nearest remaining neighbour.
type cursorPayload struct {
	Sort   string    `json:"sort"`
	Dir    string    `json:"dir"`
	Filter string    `json:"filter"`
	Value  *string   `json:"value,omitempty"`
	At     time.Time `json:"at"`
	ID     string    `json:"id"`
}

func encodeCursor(cur cursorPayload) (string, error) {
	raw, err := json.Marshal(cur)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(token string) (cursorPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return cursorPayload{}, fmt.Errorf("decode cursor: %w", err)
	}

	var cur cursorPayload
	if err := json.Unmarshal(raw, &cur); err != nil {
		return cursorPayload{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if cur.Sort == "" || cur.ID == "" || cur.At.IsZero() || model.NormalizeSortDir(cur.Dir) == "" {
		return cursorPayload{}, errors.New("invalid cursor payload")
	}
	return cur, nil
}

// filterFingerprint hashes the predicate a cursor was issued under. Cursors
// are only accepted by queries with the same fingerprint.
func filterFingerprint(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0x1f})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// resolveCursor decodes the cursor of q when its anchor needs one and checks
// it was issued for the same ordering and filters.
func resolveCursor(q model.PageQuery, sort, dir, filter string) (*cursorPayload, error) {
	if !q.Anchor.RequiresCursor() {
		return nil, nil
	}
	if q.Cursor == nil || strings.TrimSpace(*q.Cursor) == "" {
		return nil, apperrors.InvalidArgumentf("cursor is required for anchor %q", q.Anchor)
	}

	cur, err := decodeCursor(*q.Cursor)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid cursor")
	}
	if cur.Sort != sort || cur.Dir != dir || cur.Filter != filter {
		return nil, apperrors.ValidationField("cursor", "cursor does not match the requested ordering or filters")
	}
	return &cur, nil
}
