package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"profilegate/internal/metrics"
	"profilegate/internal/model"
)

const (
	systemPrompt = "You are a digital marketing specialist who analyses social profiles for commercial prospecting."
	unavailable  = "Analysis not available"

	// Longer lines are body text even when they mention a section word.
	maxHeaderLen = 60
)

// ChatGenerator asks an OpenAI-compatible chat-completions endpoint for the
// analysis and splits the answer into sections.
type ChatGenerator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewChatGenerator(endpoint, apiKey, model string, timeout time.Duration) *ChatGenerator {
	return &ChatGenerator{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *ChatGenerator) Generate(ctx context.Context, p *model.Profile, m model.Metrics) (*model.Narrative, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt(p, m)},
		},
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("narrative: chat request: %w", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("narrative: decode chat response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("narrative: chat status %d: %s", resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, errors.New("narrative: empty chat response")
	}
	return extractSections(out.Choices[0].Message.Content), nil
}

func prompt(p *model.Profile, m model.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyse this profile and write a strategic report for commercial prospecting.\n\n")
	fmt.Fprintf(&b, "PROFILE: @%s\nName: %s\nBio: %s\n", p.Username, p.FullName, p.Biography)
	fmt.Fprintf(&b, "Followers: %s\nFollowing: %s\nPosts: %s\n", thousands(p.Followers), thousands(p.Following), thousands(p.MediaCount))
	fmt.Fprintf(&b, "Verified: %t\nPrivate: %t\n\n", p.IsVerified, p.IsPrivate)
	fmt.Fprintf(&b, "METRICS:\n- Engagement rate: %.2f%%\n- Posts per week: %.1f\n", m.EngagementRate, metrics.PostsPerWeek(p))
	fmt.Fprintf(&b, "- Average likes: %.0f\n- Average comments: %.0f\n\nLATEST POSTS:\n", m.AverageLikes, m.AverageComments)
	for i, post := range p.Posts {
		if i == 3 {
			break
		}
		caption := []rune(post.Caption)
		if len(caption) > 100 {
			caption = caption[:100]
		}
		fmt.Fprintf(&b, "Post %d: %q likes=%d comments=%d video=%t\n", i+1, string(caption), post.Likes, post.Comments, post.IsVideo)
	}
	b.WriteString("\nWrite these sections:\n1. Business summary (2-3 sentences)\n2. Strengths (3-4 items)\n3. Weaknesses (2-3 items)\n4. Opportunities (3-4 items)\n5. Prospecting approach (2-3 sentences)\n")
	return b.String()
}

var sectionMarkers = []struct {
	words []string
	set   func(n *model.Narrative, s string)
}{
	{[]string{"summary", "business"}, func(n *model.Narrative, s string) { n.Summary = s }},
	{[]string{"strength"}, func(n *model.Narrative, s string) { n.Strengths = s }},
	{[]string{"weakness"}, func(n *model.Narrative, s string) { n.Weaknesses = s }},
	{[]string{"opportunit"}, func(n *model.Narrative, s string) { n.Opportunities = s }},
	{[]string{"approach", "prospecting"}, func(n *model.Narrative, s string) { n.Approach = s }},
}

// extractSections splits free text on lines that name a section. Sections
// that never appear keep a placeholder.
func extractSections(text string) *model.Narrative {
	n := &model.Narrative{
		Summary:       unavailable,
		Strengths:     unavailable,
		Weaknesses:    unavailable,
		Opportunities: unavailable,
		Approach:      unavailable,
	}

	var (
		set   func(*model.Narrative, string)
		lines []string
	)
	flush := func() {
		if set != nil && len(lines) > 0 {
			set(n, strings.Join(lines, "\n"))
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if next := markerFor(line); next != nil {
			flush()
			set, lines = next, []string{line}
			continue
		}
		if set != nil {
			lines = append(lines, line)
		}
	}
	flush()
	return n
}

func markerFor(line string) func(*model.Narrative, string) {
	if len([]rune(line)) > maxHeaderLen {
		return nil
	}
	lower := strings.ToLower(line)
	for _, m := range sectionMarkers {
		for _, w := range m.words {
			if strings.Contains(lower, w) {
				return m.set
			}
		}
	}
	return nil
}
