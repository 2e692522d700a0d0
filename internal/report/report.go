// Package report writes a plain-text analysis document for one profile.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"profilegate/internal/model"
)

const (
	bioLimit     = 100
	captionLimit = 200
	postsShown   = 3
)

type Renderer struct {
	dir string
	now func() time.Time
}

func New(dir string) *Renderer {
	return &Renderer{dir: dir, now: time.Now}
}

// Render writes the document into the renderer's directory and returns its
// path. File names are report_<key>_<timestamp>.txt.
func (r *Renderer) Render(key string, p *model.Profile, m model.Metrics, n *model.Narrative) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", r.dir, err)
	}
	now := r.now()
	name := fmt.Sprintf("report_%s_%s.txt", sanitize(key), now.Format("20060102_150405"))
	path := filepath.Join(r.dir, name)

	var b strings.Builder
	write(&b, key, now, p, m, n)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("report: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("report: rename: %w", err)
	}
	return path, nil
}

func write(b *strings.Builder, key string, now time.Time, p *model.Profile, m model.Metrics, n *model.Narrative) {
	fmt.Fprintf(b, "PROFILE ANALYSIS REPORT\n")
	fmt.Fprintf(b, "Profile: @%s\nDate: %s\n\n", key, now.Format("02/01/2006 15:04"))

	section(b, "PROFILE")
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Full name\t%s\n", orNA(p.FullName))
	fmt.Fprintf(tw, "Biography\t%s\n", orNA(clip(p.Biography, bioLimit)))
	fmt.Fprintf(tw, "Followers\t%d\n", p.Followers)
	fmt.Fprintf(tw, "Following\t%d\n", p.Following)
	fmt.Fprintf(tw, "Posts\t%d\n", p.MediaCount)
	fmt.Fprintf(tw, "Verified\t%s\n", yesNo(p.IsVerified))
	fmt.Fprintf(tw, "Private\t%s\n", yesNo(p.IsPrivate))
	_ = tw.Flush()
	b.WriteString("\n")

	section(b, "ENGAGEMENT")
	tw = tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Engagement rate\t%.2f%%\n", m.EngagementRate)
	fmt.Fprintf(tw, "Average likes\t%.2f\n", m.AverageLikes)
	fmt.Fprintf(tw, "Average comments\t%.2f\n", m.AverageComments)
	fmt.Fprintf(tw, "Total interactions\t%d\n", m.TotalInteractions)
	fmt.Fprintf(tw, "Posts analyzed\t%d\n", m.PostsAnalyzed)
	fmt.Fprintf(tw, "Video ratio\t%.2f\n", m.VideoRatio)
	_ = tw.Flush()
	b.WriteString("\n")

	section(b, "STRATEGIC ANALYSIS")
	if n == nil {
		b.WriteString("Not available.\n\n")
	} else {
		for _, s := range []struct{ title, body string }{
			{"Business summary", n.Summary},
			{"Strengths", n.Strengths},
			{"Weaknesses", n.Weaknesses},
			{"Opportunities", n.Opportunities},
			{"Suggested approach", n.Approach},
		} {
			fmt.Fprintf(b, "%s:\n%s\n\n", s.title, orNA(s.body))
		}
	}

	section(b, "LATEST POSTS")
	if len(p.Posts) == 0 {
		b.WriteString("No posts found for analysis.\n")
		return
	}
	for i, post := range p.Posts {
		if i == postsShown {
			break
		}
		kind := "photo"
		if post.IsVideo {
			kind = "video"
		}
		fmt.Fprintf(b, "Post %d:\n", i+1)
		tw = tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  Caption\t%s\n", orNA(clip(post.Caption, captionLimit)))
		fmt.Fprintf(tw, "  Likes\t%d\n", post.Likes)
		fmt.Fprintf(tw, "  Comments\t%d\n", post.Comments)
		fmt.Fprintf(tw, "  Type\t%s\n", kind)
		if !post.Date.IsZero() {
			fmt.Fprintf(tw, "  Date\t%s\n", post.Date.Format("2006-01-02"))
		}
		_ = tw.Flush()
		b.WriteString("\n")
	}
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// sanitize keeps file names inside dir whatever the key contains.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '_'
	}, key)
}
