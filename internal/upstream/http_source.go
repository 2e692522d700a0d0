package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"profilegate/internal/model"
)

const maxErrorBody = 4 << 10

// HTTPSource talks to the profile backend's JSON API.
//
//	POST /login                     {"username","password"} -> {"session"}
//	GET  /session                   validates the session header
//	GET  /profiles/{id}             profile document
//	GET  /profiles/{id}/posts?cursor=  {"items":[...],"next_cursor"}
type HTTPSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewHTTPSource(baseURL, userAgent string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type wireProfile struct {
	Username         string `json:"username"`
	FullName         string `json:"full_name"`
	Biography        string `json:"biography"`
	Followers        int    `json:"followers"`
	Following        int    `json:"followees"`
	MediaCount       int    `json:"mediacount"`
	PictureURL       string `json:"profile_pic_url"`
	IsPrivate        bool   `json:"is_private"`
	IsVerified       bool   `json:"is_verified"`
	IsBusiness       bool   `json:"is_business_account"`
	BusinessCategory string `json:"business_category_name"`
	ExternalURL      string `json:"external_url"`
}

type wirePost struct {
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Caption   string    `json:"caption"`
	TakenAt   time.Time `json:"taken_at"`
	IsVideo   bool      `json:"is_video"`
	Shortcode string    `json:"shortcode"`
	URL       string    `json:"url"`
}

type wirePostsPage struct {
	Items      []wirePost `json:"items"`
	NextCursor string     `json:"next_cursor"`
}

func (s *HTTPSource) Login(ctx context.Context, creds Credentials) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"username": creds.Username, "password": creds.Password})
	if err != nil {
		return nil, err
	}
	var out struct {
		Session string `json:"session"`
	}
	if err := s.do(ctx, http.MethodPost, "/login", nil, bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if out.Session == "" {
		return nil, errors.New("login response carried no session")
	}
	return []byte(out.Session), nil
}

func (s *HTTPSource) Validate(ctx context.Context, blob []byte) error {
	return s.do(ctx, http.MethodGet, "/session", blob, nil, nil)
}

func (s *HTTPSource) Profile(ctx context.Context, blob []byte, identifier string) (*model.Profile, error) {
	var wp wireProfile
	if err := s.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(identifier), blob, nil, &wp); err != nil {
		return nil, withIdentifier(err, identifier)
	}
	if wp.IsPrivate {
		return nil, &Error{Kind: KindPrivate, Identifier: identifier}
	}
	return &model.Profile{
		Username:         wp.Username,
		FullName:         wp.FullName,
		Biography:        wp.Biography,
		Followers:        wp.Followers,
		Following:        wp.Following,
		MediaCount:       wp.MediaCount,
		PictureURL:       wp.PictureURL,
		IsPrivate:        wp.IsPrivate,
		IsVerified:       wp.IsVerified,
		IsBusiness:       wp.IsBusiness,
		BusinessCategory: wp.BusinessCategory,
		ExternalURL:      wp.ExternalURL,
	}, nil
}

func (s *HTTPSource) Posts(ctx context.Context, blob []byte, identifier, cursor string) (PostsPage, error) {
	path := "/profiles/" + url.PathEscape(identifier) + "/posts"
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}
	var wp wirePostsPage
	if err := s.do(ctx, http.MethodGet, path, blob, nil, &wp); err != nil {
		return PostsPage{}, withIdentifier(err, identifier)
	}
	page := PostsPage{NextCursor: wp.NextCursor, Items: make([]model.Post, 0, len(wp.Items))}
	for _, p := range wp.Items {
		u := p.URL
		if u == "" && p.Shortcode != "" {
			u = "https://www.instagram.com/p/" + p.Shortcode + "/"
		}
		page.Items = append(page.Items, model.Post{
			Likes:    p.Likes,
			Comments: p.Comments,
			Caption:  p.Caption,
			Date:     p.TakenAt,
			IsVideo:  p.IsVideo,
			URL:      u,
		})
	}
	return page, nil
}

func (s *HTTPSource) do(ctx context.Context, method, path string, blob []byte, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if len(blob) > 0 {
		req.Header.Set("Authorization", "Session "+string(blob))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyResponse(resp.StatusCode, resp.Header, b)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}

// classifyResponse maps a non-2xx answer to a Kind from its status code and,
// where the backend overloads a code, from markers in the body.
func classifyResponse(status int, h http.Header, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	lower := strings.ToLower(msg)
	e := &Error{Message: fmt.Sprintf("status %d: %s", status, truncateRunes(msg, 200))}

	switch {
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = parseRetryAfter(h.Get("Retry-After"))
	case status == http.StatusUnauthorized && strings.Contains(lower, "login_required"):
		e.Kind = KindAuthExpired
	case status == http.StatusUnauthorized && strings.Contains(lower, "wait"):
		e.Kind = KindRateLimited
		e.RetryAfter = parseRetryAfter(h.Get("Retry-After"))
	case status == http.StatusForbidden && strings.Contains(lower, "private"):
		e.Kind = KindPrivate
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status >= 500:
		e.Kind = KindTransient
	case strings.Contains(lower, "please wait"), strings.Contains(lower, "rate limit"):
		e.Kind = KindRateLimited
	default:
		e.Kind = KindUnknown
	}
	return e
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func withIdentifier(err error, identifier string) error {
	var ue *Error
	if errors.As(err, &ue) && ue.Identifier == "" {
		ue.Identifier = identifier
	}
	return err
}
