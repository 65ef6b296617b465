package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/reputation"
)

// RulesURI is the resource URI of the reputation rules document.
const RulesURI = "quorum://reputation-rules"

var ruleActions = []models.Action{
	models.ActionUpvote,
	models.ActionDownvote,
	models.ActionRetractUpvote,
	models.ActionRetractDownvote,
	models.ActionPost,
	models.ActionDelete,
	models.ActionView,
	models.ActionBookmark,
	models.ActionEdit,
	models.ActionSearch,
}

// ReputationRules renders the reputation point table as Markdown.
func ReputationRules() string {
	var b strings.Builder
	b.WriteString("# Quorum Reputation Rules\n\n")
	b.WriteString("Every recorded interaction awards points to the user who performed it ")
	b.WriteString("and to the author of the content it targets.\n\n")
	b.WriteString("| Action | Target | Performer | Author |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, a := range ruleActions {
		for _, tt := range []models.TargetType{models.TargetQuestion, models.TargetAnswer} {
			p := reputation.For(a, tt)
			fmt.Fprintf(&b, "| %s | %s | %+d | %+d |\n", a, tt, p.Performer, p.Author)
		}
	}
	b.WriteString("\nWhen the performer is also the author only the author points apply, once.\n")
	b.WriteString("Withdrawing or flipping a vote records a retraction that reverses the earlier points.\n")
	b.WriteString("Redelivering the same interaction within the dedupe window awards nothing.\n")
	return b.String()
}
