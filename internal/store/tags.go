package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/models"
)

const tagColumns = `id, name, usage_count, created_at`

func scanTag(sc scanner) (*models.Tag, error) {
	var (
		t         models.Tag
		createdAt string
	)
	if err := sc.Scan(&t.ID, &t.Name, &t.UsageCount, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTagByName returns the tag whose name matches case-insensitively,
// creating it with a zero usage count if absent. The insert is a no-op on the
// unique folded key, so concurrent first use yields a single row and every
// caller reads back the same id.
func (tx *Tx) UpsertTagByName(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("tag name must not be empty")
	}
	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, err
	}
	_, err = tx.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, name_key, usage_count, created_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(name_key) DO NOTHING`,
		tagID, name, Fold(name), formatTime(time.Now()))
	if err != nil {
		return nil, mapErr(fmt.Errorf("store: upsert tag: %w", err))
	}
	return tx.GetTagByName(ctx, name)
}

// IncrementTagUsage adds delta (which may be negative) to the tag's usage count.
func (tx *Tx) IncrementTagUsage(ctx context.Context, tagID string, delta int) error {
	res, err := tx.db.ExecContext(ctx,
		`UPDATE tags SET usage_count = usage_count + ? WHERE id = ?`, delta, tagID)
	if err != nil {
		return mapErr(fmt.Errorf("store: increment tag usage: %w", err))
	}
	return expectOne(res, fmt.Sprintf("tag %s not found", tagID))
}

// GetTag returns the tag with id.
func (q queries) GetTag(ctx context.Context, tagID string) (*models.Tag, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)
	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err, "tag not found")
	}
	return t, nil
}

// GetTagByName looks a tag up case-insensitively.
func (q queries) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE name_key = ?`, Fold(strings.TrimSpace(name)))
	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err, "tag not found")
	}
	return t, nil
}

// ListTags returns a page of tags. sort is one of "popular" (default),
// "name", or "recent".
func (q queries) ListTags(ctx context.Context, query, sort string, limit, offset int) ([]*models.Tag, int, error) {
	where, args := "", []any{}
	if query != "" {
		where = ` WHERE instr(name_key, ?) > 0`
		args = append(args, Fold(query))
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM tags`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count tags: %w", err)
	}

	order := "usage_count DESC, name ASC"
	switch sort {
	case "name":
		order = "name ASC"
	case "recent":
		order = "created_at DESC, name ASC"
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	tags := []*models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, 0, err
		}
		tags = append(tags, t)
	}
	return tags, total, rows.Err()
}

// CountTagAssociations returns the number of association rows that reference
// tagID. Together with Tag.UsageCount it lets callers check the counter.
func (q queries) CountTagAssociations(ctx context.Context, tagID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM question_tags WHERE tag_id = ?`, tagID).Scan(&n)
	return n, err
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
