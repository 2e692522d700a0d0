// Package narrative turns a profile and its metrics into the five prose
// sections of an analysis: summary, strengths, weaknesses, opportunities and
// a suggested approach.
package narrative

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"profilegate/internal/metrics"
	"profilegate/internal/model"
)

type Generator interface {
	Generate(ctx context.Context, p *model.Profile, m model.Metrics) (*model.Narrative, error)
}

const bullet = " • "

// RuleBased derives every section from follower count, engagement and
// posting frequency. It never fails.
type RuleBased struct{}

func (RuleBased) Generate(_ context.Context, p *model.Profile, m model.Metrics) (*model.Narrative, error) {
	return rules(p, m), nil
}

func rules(p *model.Profile, m model.Metrics) *model.Narrative {
	user := p.Username
	followers := p.Followers
	engagement := m.EngagementRate
	perWeek := metrics.PostsPerWeek(p)

	var summary string
	switch {
	case followers > 10000:
		summary = fmt.Sprintf("@%s is an established profile with %s followers, showing a strong digital presence and significant commercial potential.", user, thousands(followers))
	case followers > 1000:
		summary = fmt.Sprintf("@%s is a growing profile with %s followers, showing consistent engagement and room to expand.", user, thousands(followers))
	default:
		summary = fmt.Sprintf("@%s is an emerging profile with %s followers, with potential to grow and build an audience.", user, thousands(followers))
	}

	var strengths []string
	if engagement > 5 {
		strengths = append(strengths, fmt.Sprintf("High engagement rate (%.1f%%)", engagement))
	}
	if perWeek > 3 {
		strengths = append(strengths, fmt.Sprintf("Consistent posting (%.1f posts/week)", perWeek))
	}
	if p.IsVerified {
		strengths = append(strengths, "Verified profile")
	}
	if !p.IsPrivate {
		strengths = append(strengths, "Public profile with accessible content")
	}
	if len(strengths) == 0 {
		strengths = []string{"Active profile", "Established digital presence"}
	}

	var weaknesses []string
	if engagement < 2 {
		weaknesses = append(weaknesses, fmt.Sprintf("Low engagement rate (%.1f%%)", engagement))
	}
	if perWeek < 1 {
		weaknesses = append(weaknesses, "Low posting frequency")
	}
	if p.IsPrivate {
		weaknesses = append(weaknesses, "Private profile with restricted content")
	}
	if len(weaknesses) == 0 {
		weaknesses = []string{"Room to grow", "Strategy could be refined"}
	}

	var opportunities []string
	if engagement < 5 {
		opportunities = append(opportunities, "Improve content strategy to lift engagement")
	}
	if perWeek < 3 {
		opportunities = append(opportunities, "Post more often for visibility")
	}
	opportunities = append(opportunities,
		"Develop strategic partnerships",
		"Use relevant hashtags",
		"Create interactive content (stories, reels)",
	)

	var approach string
	switch {
	case followers > 5000:
		approach = fmt.Sprintf("Direct, professional approach. @%s has an established audience and can be a valuable partner; lead with a clear value proposition.", user)
	case followers > 1000:
		approach = fmt.Sprintf("Collaborative approach. @%s is growing and may be open to partnerships that offer mutual growth.", user)
	default:
		approach = fmt.Sprintf("Mentoring approach. @%s is an emerging profile that can benefit from guidance and strategic partnerships.", user)
	}

	return &model.Narrative{
		Summary:       summary,
		Strengths:     strings.Join(strengths, bullet),
		Weaknesses:    strings.Join(weaknesses, bullet),
		Opportunities: strings.Join(opportunities, bullet),
		Approach:      approach,
	}
}

func thousands(n int) string {
	if n < 0 {
		return "-" + thousands(-n)
	}
	s := strconv.Itoa(n)
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
