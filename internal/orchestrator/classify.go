package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"profilegate/internal/model"
	"profilegate/internal/upstream"
)

const warningLimit = 100

// remedy is what a failure turns into: the envelope tagging plus an
// optional global block.
type remedy struct {
	reason     string
	status     model.Status
	block      time.Duration
	retryAfter int
	warning    string
}

func (o *Orchestrator) classify(err error) remedy {
	kind, typed := kindOf(err)
	if !typed {
		kind = kindFromMessage(err.Error())
	}

	switch kind {
	case upstream.KindNotFound, upstream.KindPrivate:
		return remedy{
			reason:  model.ReasonProfileUnavailable,
			status:  model.StatusSuccess,
			warning: "Profile not found or private. Showing sample data.",
		}
	case upstream.KindRateLimited:
		// The client enforces its own escalating block; the global one stays
		// fixed.
		d := o.cfg.RateLimitBlock
		return remedy{
			reason:     model.ReasonRateLimited,
			status:     model.StatusLimited,
			block:      d,
			retryAfter: int(d.Seconds()),
			warning:    fmt.Sprintf("Upstream is rate limiting requests. Try again in %d minutes.", int(d.Minutes())),
		}
	case upstream.KindUnauthorized:
		d := max(o.cfg.AccessBlock, upstream.RetryAfterOf(err))
		return remedy{
			reason:     model.ReasonAccessBlocked,
			status:     model.StatusBlocked,
			block:      d,
			retryAfter: int(d.Seconds()),
			warning:    fmt.Sprintf("Upstream access is temporarily blocked. Try again in %d minutes.", int(d.Minutes())),
		}
	default:
		return remedy{
			reason:  model.ReasonUpstreamError,
			status:  model.StatusFallback,
			warning: "Upstream error: " + truncate(err.Error(), warningLimit),
		}
	}
}

// kindOf reports the typed classification and whether one was present.
func kindOf(err error) (upstream.Kind, bool) {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	switch {
	case errors.Is(err, upstream.ErrProfileNotFound):
		return upstream.KindNotFound, true
	case errors.Is(err, upstream.ErrProfilePrivate):
		return upstream.KindPrivate, true
	case errors.Is(err, upstream.ErrRateLimited):
		return upstream.KindRateLimited, true
	case errors.Is(err, upstream.ErrUnauthorized):
		return upstream.KindUnauthorized, true
	}
	return upstream.KindUnknown, false
}

// kindFromMessage is the last resort for errors that carry no Kind.
func kindFromMessage(msg string) upstream.Kind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "not found"), strings.Contains(m, "does not exist"):
		return upstream.KindNotFound
	case strings.Contains(m, "private"):
		return upstream.KindPrivate
	case strings.Contains(m, "rate limit"), strings.Contains(m, "please wait"), strings.Contains(m, "429"):
		return upstream.KindRateLimited
	case strings.Contains(m, "blocked"), strings.Contains(m, "unauthorized"),
		strings.Contains(m, "forbidden"), strings.Contains(m, "401"):
		return upstream.KindUnauthorized
	}
	return upstream.KindUnknown
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
