package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilegate/internal/model"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	r.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	p := &model.Profile{
		Username:  "acme",
		FullName:  "Acme Co",
		Biography: strings.Repeat("b", 150),
		Followers: 1500,
		Posts: []model.Post{
			{Likes: 10, Comments: 2, Caption: "first", IsVideo: true, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			{Likes: 5},
			{Likes: 4},
			{Likes: 3, Caption: "fourth"},
		},
	}
	n := &model.Narrative{Summary: "A summary.", Approach: "Call them."}

	path, err := r.Render("acme", p, model.Metrics{EngagementRate: 0.8}, n)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_acme_20240506_070809.txt"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(b)

	assert.Contains(t, doc, "Profile: @acme")
	assert.Contains(t, doc, "Acme Co")
	assert.Contains(t, doc, strings.Repeat("b", 100)+"...")
	assert.Contains(t, doc, "0.80%")
	assert.Contains(t, doc, "A summary.")
	assert.Contains(t, doc, "Weaknesses:\nN/A")
	assert.Contains(t, doc, "video")
	assert.Contains(t, doc, "2024-05-01")
	assert.NotContains(t, doc, "fourth", "only three posts are listed")
}

func TestRenderWithoutNarrativeOrPosts(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "nested"))

	path, err := r.Render("../escape", &model.Profile{Username: "x"}, model.Metrics{}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "report_.._escape_"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "No posts found for analysis.")
	assert.Contains(t, string(b), "STRATEGIC ANALYSIS\n------------------\nNot available.")
}
