package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/quorum/internal/models"
)

const questionColumns = `q.id, q.title, q.content, q.author_id, q.upvotes, q.downvotes,
	q.views, q.answer_count, q.report_count, q.created_at, q.updated_at`

func scanQuestion(sc scanner) (*models.Question, error) {
	var (
		m                    models.Question
		createdAt, updatedAt string
	)
	err := sc.Scan(&m.ID, &m.Title, &m.Content, &m.AuthorID, &m.Upvotes, &m.Downvotes,
		&m.Views, &m.AnswerCount, &m.ReportCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	m.Tags = []models.Tag{}
	return &m, nil
}

// Counter names a denormalized question counter.
type Counter string

const (
	CounterViews     Counter = "views"
	CounterUpvotes   Counter = "upvotes"
	CounterDownvotes Counter = "downvotes"
	CounterAnswers   Counter = "answer_count"
	CounterReports   Counter = "report_count"
)

func (c Counter) valid() bool {
	switch c {
	case CounterViews, CounterUpvotes, CounterDownvotes, CounterAnswers, CounterReports:
		return true
	}
	return false
}

// CreateQuestion inserts the question row. Tags are attached separately
// with AddQuestionTag.
func (tx *Tx) CreateQuestion(ctx context.Context, m *models.Question) error {
	_, err := tx.db.ExecContext(ctx, `
		INSERT INTO questions (id, title, content, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.Content, m.AuthorID, formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return mapErr(fmt.Errorf("store: create question: %w", err))
	}
	return nil
}

// UpdateQuestionText rewrites title and content.
func (tx *Tx) UpdateQuestionText(ctx context.Context, questionID, title, content string, at time.Time) error {
	res, err := tx.db.ExecContext(ctx,
		`UPDATE questions SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		title, content, formatTime(at), questionID)
	if err != nil {
		return mapErr(fmt.Errorf("store: update question: %w", err))
	}
	return expectOne(res, "question not found")
}

// TouchQuestion bumps updated_at.
func (tx *Tx) TouchQuestion(ctx context.Context, questionID string, at time.Time) error {
	res, err := tx.db.ExecContext(ctx,
		`UPDATE questions SET updated_at = ? WHERE id = ?`, formatTime(at), questionID)
	if err != nil {
		return mapErr(fmt.Errorf("store: touch question: %w", err))
	}
	return expectOne(res, "question not found")
}

// DeleteQuestion removes the question row. Dependent rows must be removed
// first; foreign keys reject the delete otherwise.
func (tx *Tx) DeleteQuestion(ctx context.Context, questionID string) error {
	res, err := tx.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, questionID)
	if err != nil {
		return mapErr(fmt.Errorf("store: delete question: %w", err))
	}
	return expectOne(res, "question not found")
}

// AddToQuestionCounter adds delta to one of the question's counters and
// returns the new value.
func (tx *Tx) AddToQuestionCounter(ctx context.Context, questionID string, c Counter, delta int) (int, error) {
	if !c.valid() {
		return 0, fmt.Errorf("store: unknown question counter %q", c)
	}
	var v int
	err := tx.db.QueryRowContext(ctx,
		`UPDATE questions SET `+string(c)+` = `+string(c)+` + ? WHERE id = ? RETURNING `+string(c),
		delta, questionID).Scan(&v)
	if err != nil {
		return 0, notFound(err, "question not found")
	}
	return v, nil
}

// ResetReports clears every report on the question.
func (tx *Tx) ResetReports(ctx context.Context, questionID string) error {
	if _, err := tx.db.ExecContext(ctx, `DELETE FROM question_reports WHERE question_id = ?`, questionID); err != nil {
		return mapErr(fmt.Errorf("store: delete reports: %w", err))
	}
	res, err := tx.db.ExecContext(ctx, `UPDATE questions SET report_count = 0 WHERE id = ?`, questionID)
	if err != nil {
		return mapErr(fmt.Errorf("store: reset report count: %w", err))
	}
	return expectOne(res, "question not found")
}

// AddQuestionReport records a report by reporterID. It returns false without
// error when that user has already reported the question.
func (tx *Tx) AddQuestionReport(ctx context.Context, questionID, reporterID, reason string, at time.Time) (bool, error) {
	res, err := tx.db.ExecContext(ctx, `
		INSERT INTO question_reports (question_id, reporter_id, reason, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(question_id, reporter_id) DO NOTHING`,
		questionID, reporterID, reason, formatTime(at))
	if err != nil {
		return false, mapErr(fmt.Errorf("store: add report: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AddQuestionTag inserts one association row.
func (tx *Tx) AddQuestionTag(ctx context.Context, questionID, tagID string, position int) error {
	_, err := tx.db.ExecContext(ctx,
		`INSERT INTO question_tags (question_id, tag_id, position) VALUES (?, ?, ?)`,
		questionID, tagID, position)
	if err != nil {
		return mapErr(fmt.Errorf("store: add question tag: %w", err))
	}
	return nil
}

// NextTagPosition returns the position after the question's last tag.
func (tx *Tx) NextTagPosition(ctx context.Context, questionID string) (int, error) {
	var n int
	err := tx.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM question_tags WHERE question_id = ?`, questionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: next tag position: %w", err)
	}
	return n, nil
}

// RemoveQuestionTags deletes the association rows for the given tags.
func (tx *Tx) RemoveQuestionTags(ctx context.Context, questionID string, tagIDs ...string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	args := append([]any{questionID}, stringArgs(tagIDs)...)
	_, err := tx.db.ExecContext(ctx,
		`DELETE FROM question_tags WHERE question_id = ? AND tag_id IN (`+placeholders(len(tagIDs))+`)`,
		args...)
	if err != nil {
		return mapErr(fmt.Errorf("store: remove question tags: %w", err))
	}
	return nil
}

// GetQuestion returns the question with its tags in attachment order.
func (q queries) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = ?`, questionID)
	m, err := scanQuestion(row)
	if err != nil {
		return nil, notFound(err, "question not found")
	}
	if err := q.attachTags(ctx, []*models.Question{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// QuestionSort selects the ordering of a question listing.
type QuestionSort string

const (
	SortNewest      QuestionSort = "newest"
	SortUnanswered  QuestionSort = "unanswered"
	SortPopular     QuestionSort = "popular"
	SortRecommended QuestionSort = "recommended"
	SortReported    QuestionSort = "reported"
	SortHot         QuestionSort = "hot"
)

// QuestionFilter narrows ListQuestions. Zero fields are ignored.
type QuestionFilter struct {
	Query           string
	AuthorID        string
	ExcludeAuthorID string
	ExcludeIDs      []string
	AnyTagIDs       []string
	ReportedOnly    bool
	Sort            QuestionSort
	Limit           int
	Offset          int
}

// ListQuestions returns one page of matching questions and the total number
// of matches.
func (q queries) ListQuestions(ctx context.Context, f QuestionFilter) ([]*models.Question, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Query != "" {
		folded := Fold(f.Query)
		conds = append(conds, `(instr(fold(q.title), ?) > 0 OR instr(fold(q.content), ?) > 0)`)
		args = append(args, folded, folded)
	}
	if f.AuthorID != "" {
		conds = append(conds, `q.author_id = ?`)
		args = append(args, f.AuthorID)
	}
	if f.ExcludeAuthorID != "" {
		conds = append(conds, `q.author_id <> ?`)
		args = append(args, f.ExcludeAuthorID)
	}
	if len(f.ExcludeIDs) > 0 {
		conds = append(conds, `q.id NOT IN (`+placeholders(len(f.ExcludeIDs))+`)`)
		args = append(args, stringArgs(f.ExcludeIDs)...)
	}
	if len(f.AnyTagIDs) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM question_tags qt
			WHERE qt.question_id = q.id AND qt.tag_id IN (`+placeholders(len(f.AnyTagIDs))+`))`)
		args = append(args, stringArgs(f.AnyTagIDs)...)
	}
	if f.ReportedOnly {
		conds = append(conds, `q.report_count > 0`)
	}
	if f.Sort == SortUnanswered {
		conds = append(conds, `q.answer_count = 0`)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM questions q`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count questions: %w", err)
	}

	var order string
	switch f.Sort {
	case SortPopular:
		order = "q.upvotes DESC, q.created_at DESC, q.id"
	case SortRecommended:
		order = "q.upvotes DESC, q.views DESC, q.created_at DESC, q.id"
	case SortReported:
		order = "q.report_count DESC, q.created_at DESC, q.id"
	case SortHot:
		order = "q.views DESC, q.upvotes DESC, q.created_at DESC, q.id"
	default:
		order = "q.created_at DESC, q.id"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions q`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list questions: %w", err)
	}
	defer rows.Close()

	out := []*models.Question{}
	for rows.Next() {
		m, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := q.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// TagIDsForQuestions returns the distinct tag ids attached to any of the
// given questions.
func (q queries) TagIDsForQuestions(ctx context.Context, questionIDs []string) ([]string, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT tag_id FROM question_tags WHERE question_id IN (`+placeholders(len(questionIDs))+`)`,
		stringArgs(questionIDs)...)
	if err != nil {
		return nil, fmt.Errorf("store: tag ids for questions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		out = append(out, tagID)
	}
	return out, rows.Err()
}

// attachTags loads the tags of every question in one query.
func (q queries) attachTags(ctx context.Context, qs []*models.Question) error {
	if len(qs) == 0 {
		return nil
	}
	byID := make(map[string]*models.Question, len(qs))
	ids := make([]string, len(qs))
	for i, m := range qs {
		byID[m.ID] = m
		ids[i] = m.ID
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT qt.question_id, t.id, t.name, t.usage_count, t.created_at
		FROM question_tags qt
		JOIN tags t ON t.id = qt.tag_id
		WHERE qt.question_id IN (`+placeholders(len(ids))+`)
		ORDER BY qt.question_id, qt.position`,
		stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("store: load question tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			questionID, createdAt string
			t                     models.Tag
		)
		if err := rows.Scan(&questionID, &t.ID, &t.Name, &t.UsageCount, &createdAt); err != nil {
			return err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if m, ok := byID[questionID]; ok {
			m.Tags = append(m.Tags, t)
		}
	}
	return rows.Err()
}
