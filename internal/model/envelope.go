package model

import "time"

type DataSource string

const (
	SourceLive     DataSource = "live"
	SourceCache    DataSource = "cache"
	SourceFallback DataSource = "fallback"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusLimited  Status = "limited"
	StatusBlocked  Status = "blocked"
	StatusFallback Status = "fallback"
)

// Fallback reason codes.
const (
	ReasonForced             = "forced"
	ReasonProfileUnavailable = "profile_unavailable"
	ReasonRateLimited        = "rate_limited"
	ReasonAccessBlocked      = "access_blocked"
	ReasonUpstreamError      = "upstream_error"
	ReasonUpstreamDisabled   = "upstream_disabled"
)

// Envelope is the uniform result of one orchestrated request. DataSource is
// always set; a fallback envelope always carries a Reason.
type Envelope struct {
	RequestID string     `json:"request_id"`
	Key       string     `json:"key"`
	Profile   Profile    `json:"profile"`
	Metrics   Metrics    `json:"metrics"`
	Narrative *Narrative `json:"narrative,omitempty"`

	DataSource DataSource `json:"data_source"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	Warning    string     `json:"warning,omitempty"`
	RetryAfter int        `json:"retry_after,omitempty"`

	Cached          bool `json:"cached,omitempty"`
	CacheAgeMinutes int  `json:"cache_age_minutes,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

func (e *Envelope) Snapshot() Snapshot {
	return Snapshot{Profile: e.Profile, Metrics: e.Metrics, Narrative: e.Narrative}
}
