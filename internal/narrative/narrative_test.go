package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilegate/internal/model"
)

func TestRuleBasedThresholds(t *testing.T) {
	tests := []struct {
		name       string
		profile    model.Profile
		metrics    model.Metrics
		summary    string
		approach   string
		strengths  []string
		weaknesses []string
	}{
		{
			name:       "established",
			profile:    model.Profile{Username: "big", Followers: 25000, IsVerified: true},
			metrics:    model.Metrics{EngagementRate: 6.5},
			summary:    "established profile with 25,000 followers",
			approach:   "Direct, professional approach",
			strengths:  []string{"High engagement rate (6.5%)", "Verified profile", "Public profile"},
			weaknesses: []string{"Low posting frequency"},
		},
		{
			name:       "growing",
			profile:    model.Profile{Username: "mid", Followers: 3000},
			metrics:    model.Metrics{EngagementRate: 3},
			summary:    "growing profile with 3,000 followers",
			approach:   "Collaborative approach",
			strengths:  []string{"Public profile"},
			weaknesses: []string{"Low posting frequency"},
		},
		{
			name:       "emerging private",
			profile:    model.Profile{Username: "tiny", Followers: 200, IsPrivate: true},
			metrics:    model.Metrics{EngagementRate: 1},
			summary:    "emerging profile with 200 followers",
			approach:   "Mentoring approach",
			strengths:  []string{"Active profile"},
			weaknesses: []string{"Low engagement rate (1.0%)", "Private profile"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := RuleBased{}.Generate(context.Background(), &tt.profile, tt.metrics)
			require.NoError(t, err)
			assert.Contains(t, n.Summary, tt.summary)
			assert.Contains(t, n.Approach, tt.approach)
			for _, s := range tt.strengths {
				assert.Contains(t, n.Strengths, s)
			}
			for _, w := range tt.weaknesses {
				assert.Contains(t, n.Weaknesses, w)
			}
			assert.Contains(t, n.Opportunities, "Develop strategic partnerships")
		})
	}
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "0", thousands(0))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "1,000", thousands(1000))
	assert.Equal(t, "1,234,567", thousands(1234567))
	assert.Equal(t, "-12,000", thousands(-12000))
}

func TestExtractSections(t *testing.T) {
	text := `1. Business summary
Acme sells anvils.

2. Strengths
- Loyal audience
- Clear branding
3. Weaknesses
- Few videos
4. Opportunities
- Reels
5. Prospecting approach
Reach out directly.`

	n := extractSections(text)

	assert.Equal(t, "1. Business summary\nAcme sells anvils.", n.Summary)
	assert.Equal(t, "2. Strengths\n- Loyal audience\n- Clear branding", n.Strengths)
	assert.Equal(t, "3. Weaknesses\n- Few videos", n.Weaknesses)
	assert.Equal(t, "4. Opportunities\n- Reels", n.Opportunities)
	assert.Equal(t, "5. Prospecting approach\nReach out directly.", n.Approach)
}

func TestExtractSectionsMissing(t *testing.T) {
	n := extractSections("Just some text without headers.")
	assert.Equal(t, unavailable, n.Summary)
	assert.Equal(t, unavailable, n.Approach)
}

func TestChatGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "@acme")
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Summary\nAcme is great.\nApproach\nCall them."}}]}`))
	}))
	defer srv.Close()

	g := NewChatGenerator(srv.URL+"/v1/", "k", "gpt-test", 5*time.Second)
	n, err := g.Generate(context.Background(), &model.Profile{Username: "acme"}, model.Metrics{})

	require.NoError(t, err)
	assert.Equal(t, "Summary\nAcme is great.", n.Summary)
	assert.Equal(t, "Approach\nCall them.", n.Approach)
	assert.Equal(t, unavailable, n.Strengths)
}

func TestChatGeneratorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	g := NewChatGenerator(srv.URL, "k", "gpt-test", 5*time.Second)
	_, err := g.Generate(context.Background(), &model.Profile{Username: "acme"}, model.Metrics{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

type failing struct{}

func (failing) Generate(context.Context, *model.Profile, model.Metrics) (*model.Narrative, error) {
	return nil, errors.New("backend down")
}

func TestResilientFallsBackToRules(t *testing.T) {
	p := &model.Profile{Username: "acme", Followers: 2000}

	n := Resilient{Primary: failing{}}.Generate(context.Background(), p, model.Metrics{})
	require.NotNil(t, n)
	assert.Contains(t, n.Summary, "@acme is a growing profile")

	n = Resilient{}.Generate(context.Background(), p, model.Metrics{})
	assert.Contains(t, n.Approach, "Collaborative")
}
