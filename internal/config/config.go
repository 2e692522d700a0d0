package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port" validate:"min=1,max=65535"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		RequestTimeout Duration `yaml:"requestTimeout"`
	} `yaml:"server"`

	Upstream struct {
		BaseURL   string `yaml:"baseURL" validate:"required,url"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		UserAgent string `yaml:"userAgent"`

		Timeout       Duration `yaml:"timeout"`
		MaxAttempts   int      `yaml:"maxAttempts" validate:"min=1,max=10"`
		MaxItems      int      `yaml:"maxItems" validate:"min=0,max=50"`
		SessionMaxAge Duration `yaml:"sessionMaxAge"`

		HumanDelay Range `yaml:"humanDelay"`
		ItemDelay  Range `yaml:"itemDelay"`

		Backoff struct {
			Floor   Duration `yaml:"floor"`
			Ceiling Duration `yaml:"ceiling"`
		} `yaml:"backoff"`
		UnauthorizedWait Duration `yaml:"unauthorizedWait"`

		// DegradedStart keeps the process up when login fails at start-up;
		// every request is then answered from cache or fallback data.
		DegradedStart bool `yaml:"degradedStart"`
	} `yaml:"upstream"`

	Governor struct {
		MinInterval    Duration `yaml:"minInterval"`
		RateLimitBlock Duration `yaml:"rateLimitBlock"`
		AccessBlock    Duration `yaml:"accessBlock"`
	} `yaml:"governor"`

	Cache struct {
		Duration   Duration `yaml:"duration"`
		MaxEntries int      `yaml:"maxEntries" validate:"min=0"`
		Disk       struct {
			Path string `yaml:"path"`
			Max  string `yaml:"max"`

			// compiled
			MaxBytes int64 `yaml:"-"`
		} `yaml:"disk"`
	} `yaml:"cache"`

	State struct {
		Backend string `yaml:"backend" validate:"oneof=file redis"`
		Dir     string `yaml:"dir"`
		SealKey string `yaml:"sealKey"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"min=0"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"state"`

	Fallback struct {
		// Deterministic seeds the synthetic generator from the resource key so
		// the same key always yields the same fallback profile.
		Deterministic bool `yaml:"deterministic"`
	} `yaml:"fallback"`

	Narrative struct {
		Endpoint string   `yaml:"endpoint" validate:"omitempty,url"`
		APIKey   string   `yaml:"apiKey"`
		Model    string   `yaml:"model"`
		Timeout  Duration `yaml:"timeout"`
	} `yaml:"narrative"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`

	Logging struct {
		LogStatsEvery Duration `yaml:"logStatsEvery"`
	} `yaml:"logging"`
}

// Range is an inclusive [Min, Max] duration interval.
type Range struct {
	Min Duration `yaml:"min"`
	Max Duration `yaml:"max"`
}

// Duration is a time.Duration written as a Go duration string ("10s", "1h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d Duration) Std() time.Duration { return time.Duration(d) }

var validate = validator.New()

// Default returns a configuration with every default applied and no
// upstream configured. Tests start from it.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	cfg.Upstream.BaseURL = strings.TrimRight(cfg.Upstream.BaseURL, "/")

	// Missing credentials are not a config error: the upstream client reports
	// them as an authentication failure.
	if cfg.Upstream.Username, err = resolveOptional(cfg.Upstream.Username); err != nil {
		log.Printf("config: upstream.username: %v", err)
	}
	if cfg.Upstream.Password, err = resolveOptional(cfg.Upstream.Password); err != nil {
		log.Printf("config: upstream.password: %v", err)
	}
	if cfg.Narrative.APIKey, err = resolveOptional(cfg.Narrative.APIKey); err != nil {
		log.Printf("config: narrative.apiKey: %v (rule-based narratives only)", err)
	}
	if cfg.State.SealKey, err = resolveOptional(cfg.State.SealKey); err != nil {
		log.Printf("config: state.sealKey: %v (session blobs stored unsealed)", err)
	}
	if cfg.State.Redis.Password != "" {
		if cfg.State.Redis.Password, err = ResolveSecret(cfg.State.Redis.Password); err != nil {
			return Config{}, fmt.Errorf("state.redis.password: %w", err)
		}
	}

	if cfg.Cache.Disk.Max != "" {
		n, err := parseBytes(cfg.Cache.Disk.Max)
		if err != nil {
			return Config{}, fmt.Errorf("cache.disk.max: %w", err)
		}
		cfg.Cache.Disk.MaxBytes = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints plus the cross-field rules the
// validator tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	u := c.Upstream
	if u.HumanDelay.Min > u.HumanDelay.Max {
		return errors.New("upstream.humanDelay: min greater than max")
	}
	if u.ItemDelay.Min > u.ItemDelay.Max {
		return errors.New("upstream.itemDelay: min greater than max")
	}
	if u.Backoff.Floor > u.Backoff.Ceiling {
		return errors.New("upstream.backoff: floor greater than ceiling")
	}
	if c.State.Backend == "redis" && c.State.Redis.Addr == "" {
		return errors.New("state.redis.addr is required for the redis backend")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = Duration(3 * time.Minute)
	}

	u := &cfg.Upstream
	if u.UserAgent == "" {
		u.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if u.Timeout == 0 {
		u.Timeout = Duration(30 * time.Second)
	}
	if u.MaxAttempts == 0 {
		u.MaxAttempts = 3
	}
	if u.MaxItems == 0 {
		u.MaxItems = 12
	}
	if u.SessionMaxAge == 0 {
		u.SessionMaxAge = Duration(12 * time.Hour)
	}
	if u.HumanDelay == (Range{}) {
		u.HumanDelay = Range{Min: Duration(2 * time.Second), Max: Duration(4 * time.Second)}
	}
	if u.ItemDelay == (Range{}) {
		u.ItemDelay = Range{Min: Duration(500 * time.Millisecond), Max: Duration(1500 * time.Millisecond)}
	}
	if u.Backoff.Floor == 0 {
		u.Backoff.Floor = Duration(5 * time.Minute)
	}
	if u.Backoff.Ceiling == 0 {
		u.Backoff.Ceiling = Duration(2 * time.Hour)
	}
	if u.UnauthorizedWait == 0 {
		u.UnauthorizedWait = Duration(30 * time.Minute)
	}

	g := &cfg.Governor
	if g.MinInterval == 0 {
		g.MinInterval = Duration(10 * time.Second)
	}
	if g.RateLimitBlock == 0 {
		g.RateLimitBlock = Duration(5 * time.Minute)
	}
	if g.AccessBlock == 0 {
		g.AccessBlock = Duration(30 * time.Minute)
	}

	if cfg.Cache.Duration == 0 {
		cfg.Cache.Duration = Duration(time.Hour)
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1000
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = "file"
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = "./data/state"
	}
	if cfg.State.Redis.Prefix == "" {
		cfg.State.Redis.Prefix = "profilegate:"
	}

	if cfg.Narrative.Model == "" {
		cfg.Narrative.Model = "gpt-3.5-turbo"
	}
	if cfg.Narrative.Timeout == 0 {
		cfg.Narrative.Timeout = Duration(30 * time.Second)
	}

	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "./reports"
	}
}
