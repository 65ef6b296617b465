package moderation

import "github.com/starford/quorum/internal/models"

// Badges counts the bronze, silver and gold badges a user holds.
type Badges struct {
	Bronze int `json:"bronze"`
	Silver int `json:"silver"`
	Gold   int `json:"gold"`
}

// badgeThresholds are the bronze, silver and gold cut-offs per criterion.
var badgeThresholds = map[string][3]int{
	"question_count":   {10, 50, 100},
	"answer_count":     {10, 50, 100},
	"question_upvotes": {10, 50, 100},
	"total_views":      {1_000, 10_000, 100_000},
}

// AssignBadges awards one badge per threshold reached on each criterion.
func AssignBadges(a *models.UserActivity) Badges {
	counts := map[string]int{
		"question_count":   a.Questions,
		"answer_count":     a.Answers,
		"question_upvotes": a.QuestionUpvotes + a.AnswerUpvotes,
		"total_views":      a.Views,
	}
	var b Badges
	for criterion, n := range counts {
		t := badgeThresholds[criterion]
		if n >= t[0] {
			b.Bronze++
		}
		if n >= t[1] {
			b.Silver++
		}
		if n >= t[2] {
			b.Gold++
		}
	}
	return b
}
