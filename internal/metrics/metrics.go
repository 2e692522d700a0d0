// Package metrics derives engagement numbers from a collected profile.
package metrics

import (
	"math"

	"profilegate/internal/model"
)

const bestCaptionLimit = 100

// Compute returns the engagement metrics for p. A profile without posts or
// without followers yields zero metrics.
func Compute(p *model.Profile) model.Metrics {
	if p == nil || len(p.Posts) == 0 || p.Followers == 0 {
		return model.Metrics{}
	}

	var likes, comments, videos int
	best := 0
	for i, post := range p.Posts {
		likes += post.Likes
		comments += post.Comments
		if post.IsVideo {
			videos++
		}
		if post.Likes+post.Comments > p.Posts[best].Likes+p.Posts[best].Comments {
			best = i
		}
	}

	n := float64(len(p.Posts))
	total := likes + comments
	bp := p.Posts[best]
	caption := []rune(bp.Caption)
	if len(caption) > bestCaptionLimit {
		caption = caption[:bestCaptionLimit]
	}

	return model.Metrics{
		EngagementRate:    round2(float64(total) / n / float64(p.Followers) * 100),
		AverageLikes:      round2(float64(likes) / n),
		AverageComments:   round2(float64(comments) / n),
		TotalInteractions: total,
		BestPost: &model.BestPost{
			Likes:    bp.Likes,
			Comments: bp.Comments,
			URL:      bp.URL,
			Caption:  string(caption),
		},
		PostsAnalyzed: len(p.Posts),
		VideoRatio:    float64(videos) / n,
	}
}

// PostsPerWeek estimates posting frequency from the span between the oldest
// and newest collected post.
func PostsPerWeek(p *model.Profile) float64 {
	if p == nil || len(p.Posts) < 2 {
		return 0
	}
	oldest, newest := p.Posts[0].Date, p.Posts[0].Date
	for _, post := range p.Posts[1:] {
		if post.Date.Before(oldest) {
			oldest = post.Date
		}
		if post.Date.After(newest) {
			newest = post.Date
		}
	}
	days := newest.Sub(oldest).Hours() / 24
	if days <= 0 {
		return float64(len(p.Posts))
	}
	return round2(float64(len(p.Posts)) / days * 7)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
