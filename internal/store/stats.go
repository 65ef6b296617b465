package store

import (
	"context"
	"fmt"

	"github.com/starford/quorum/internal/models"
)

// Stats returns the admin dashboard counters.
func (q queries) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	err := q.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM questions),
			(SELECT count(*) FROM answers),
			(SELECT count(*) FROM questions WHERE report_count > 0)`).
		Scan(&st.Users, &st.Questions, &st.Answers, &st.Reported)
	if err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	return &st, nil
}

// UserTopTags returns the tags userID has used most across their questions,
// at most limit of them.
func (q queries) UserTopTags(ctx context.Context, userID string, limit int) ([]models.TagCount, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.name, count(*) AS n
		FROM question_tags qt
		JOIN questions q ON q.id = qt.question_id
		JOIN tags t ON t.id = qt.tag_id
		WHERE q.author_id = ?
		GROUP BY t.id, t.name
		ORDER BY n DESC, t.name ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: user top tags: %w", err)
	}
	defer rows.Close()

	out := []models.TagCount{}
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// UserActivity returns the aggregates badges are derived from.
func (q queries) UserActivity(ctx context.Context, userID string) (*models.UserActivity, error) {
	var a models.UserActivity
	err := q.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM questions WHERE author_id = ?1),
			(SELECT coalesce(sum(upvotes), 0) FROM questions WHERE author_id = ?1),
			(SELECT coalesce(sum(views), 0) FROM questions WHERE author_id = ?1),
			(SELECT count(*) FROM answers WHERE author_id = ?1),
			(SELECT coalesce(sum(upvotes), 0) FROM answers WHERE author_id = ?1)`, userID).
		Scan(&a.Questions, &a.QuestionUpvotes, &a.Views, &a.Answers, &a.AnswerUpvotes)
	if err != nil {
		return nil, fmt.Errorf("store: user activity: %w", err)
	}
	return &a, nil
}

// MonthlyStats counts new users and questions per calendar month (UTC),
// oldest month first.
func (q queries) MonthlyStats(ctx context.Context) ([]models.MonthlyStat, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT month, sum(users), sum(questions) FROM (
			SELECT substr(created_at, 1, 7) AS month, 1 AS users, 0 AS questions FROM users
			UNION ALL
			SELECT substr(created_at, 1, 7), 0, 1 FROM questions
		)
		GROUP BY month
		ORDER BY month ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: monthly stats: %w", err)
	}
	defer rows.Close()

	out := []models.MonthlyStat{}
	for rows.Next() {
		var m models.MonthlyStat
		if err := rows.Scan(&m.Month, &m.Users, &m.Questions); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
