// Package model holds the data shapes shared by the governance components
// and returned to HTTP callers.
package model

import "time"

// Post is one item of a profile's paginated posts sub-resource.
type Post struct {
	Likes    int       `json:"likes"`
	Comments int       `json:"comments"`
	Caption  string    `json:"caption"`
	Date     time.Time `json:"date"`
	IsVideo  bool      `json:"is_video"`
	URL      string    `json:"url"`
}

type Profile struct {
	Username         string    `json:"username"`
	FullName         string    `json:"full_name"`
	Biography        string    `json:"biography"`
	Followers        int       `json:"followers"`
	Following        int       `json:"following"`
	MediaCount       int       `json:"media_count"`
	PictureURL       string    `json:"picture_url"`
	IsPrivate        bool      `json:"is_private"`
	IsVerified       bool      `json:"is_verified"`
	IsBusiness       bool      `json:"is_business"`
	BusinessCategory string    `json:"business_category,omitempty"`
	ExternalURL      string    `json:"external_url,omitempty"`
	Posts            []Post    `json:"posts"`
	CollectedAt      time.Time `json:"collected_at"`

	// Partial is set when a live profile came back without its posts.
	Partial       bool   `json:"partial,omitempty"`
	PartialReason string `json:"partial_reason,omitempty"`
}

// BestPost is the post with the most likes+comments.
type BestPost struct {
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	URL      string `json:"url"`
	Caption  string `json:"caption"`
}

type Metrics struct {
	EngagementRate    float64   `json:"engagement_rate"`
	AverageLikes      float64   `json:"average_likes"`
	AverageComments   float64   `json:"average_comments"`
	TotalInteractions int       `json:"total_interactions"`
	BestPost          *BestPost `json:"best_post"`
	PostsAnalyzed     int       `json:"posts_analyzed"`
	VideoRatio        float64   `json:"video_ratio"`
}

// Narrative is the fixed set of sections produced by a narrative generator.
type Narrative struct {
	Summary       string `json:"summary"`
	Strengths     string `json:"strengths"`
	Weaknesses    string `json:"weaknesses"`
	Opportunities string `json:"opportunities"`
	Approach      string `json:"approach"`
}

// Snapshot is what the cache keeps per resource key.
type Snapshot struct {
	Profile   Profile    `json:"profile"`
	Metrics   Metrics    `json:"metrics"`
	Narrative *Narrative `json:"narrative,omitempty"`
}
