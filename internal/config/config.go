package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

const (
	envPrefix         = "EWS_"
	DefaultConfigPath = "config/early-warning.json"
)

// Tiers recognised by monitoringIntervals and sources[].tier.
const (
	TierCritical = "critical"
	TierHigh     = "high"
	TierMedium   = "medium"
	TierLow      = "low"
)

type Config struct {
	Triggers              []TriggerConfig     `json:"triggers" validate:"required,min=1,dive"`
	SeverityDefaults      map[string]string   `json:"severityDefaults"`
	Stakeholders          []StakeholderConfig `json:"stakeholders" validate:"required,min=1,dive"`
	StakeholderRouting    RoutingConfig       `json:"stakeholderRouting"`
	MonitoringIntervals   map[string]int      `json:"monitoringIntervals"`
	EscalationInterval    int                 `json:"escalationInterval" validate:"gte=1"`
	RedSLASeconds         int                 `json:"redSLASeconds" validate:"gte=1"`
	RestartBackoffSeconds int                 `json:"restartBackoffSeconds" validate:"gte=1"`
	ShutdownGraceSeconds  int                 `json:"shutdownGraceSeconds" validate:"gte=1"`
	Channels              []ChannelConfig     `json:"channels" validate:"dive"`
	Sources               []SourceConfig      `json:"sources" validate:"dive"`
	Worker                WorkerConfig        `json:"worker"`
	Snapshot              SnapshotConfig      `json:"snapshot"`
	Server                ServerConfig        `json:"server"`
	Logging               LoggingConfig       `json:"logging"`
}

type TriggerConfig struct {
	Name     string         `json:"name" validate:"required"`
	Category string         `json:"category" validate:"required"`
	Severity string         `json:"severity"` // optional floor
	Groups   []KeywordGroup `json:"groups" validate:"required,min=1,dive"`
}

// KeywordGroup matches when any keyword appears in any of the fields.
type KeywordGroup struct {
	Fields        []string `json:"fields"`
	Keywords      []string `json:"keywords" validate:"required,min=1"`
	CaseSensitive bool     `json:"caseSensitive"`
}

type StakeholderConfig struct {
	Name       string            `json:"name" validate:"required"`
	Role       string            `json:"role" validate:"required"`
	Contacts   map[string]string `json:"contacts"`
	Thresholds map[string]string `json:"thresholds"`
}

type RoutingConfig struct {
	Categories   map[string][]string `json:"categories"`
	TopExecutive string              `json:"topExecutive" validate:"required"`
	Oversight    string              `json:"oversight" validate:"required"`
}

type ChannelConfig struct {
	Name           string            `json:"name" validate:"required"`
	Type           string            `json:"type" validate:"required"`
	Enabled        bool              `json:"enabled"`
	TimeoutSeconds int               `json:"timeoutSeconds" validate:"gte=0"`
	Settings       map[string]string `json:"settings"`
}

func (c ChannelConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SourceConfig struct {
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=http rss redis manual"`
	Tier      string `json:"tier" validate:"required,oneof=critical high medium low"`
	Enabled   bool   `json:"enabled"`
	URL       string `json:"url" validate:"required_if=Type http,required_if=Type rss"`
	RedisAddr string `json:"redisAddr"`
	RedisKey  string `json:"redisKey" validate:"required_if=Type redis"`
	BatchSize int    `json:"batchSize" validate:"gte=0"`
}

type WorkerConfig struct {
	Count      int `json:"count" validate:"gte=1"`
	BufferSize int `json:"bufferSize" validate:"gte=1"`
}

type SnapshotConfig struct {
	Path            string `json:"path"`
	DBPath          string `json:"dbPath"`
	IntervalSeconds int    `json:"intervalSeconds" validate:"gte=1"`

	// SeenRetentionSeconds bounds how long processed event ids are kept for
	// dedup. 0 keeps them forever.
	SeenRetentionSeconds int `json:"seenRetentionSeconds" validate:"gte=0"`
}

type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port" validate:"gte=1,lte=65535"`
	RateLimit int    `json:"rateLimit" validate:"gte=1"`
}

type LoggingConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=json text"`
}

// ConfigError reports missing or invalid configuration found at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// envKeys maps EWS_* environment variables onto config keys.
var envKeys = map[string]string{
	"SERVER_HOST":         "server.host",
	"SERVER_PORT":         "server.port",
	"SERVER_RATE_LIMIT":   "server.rateLimit",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
	"ESCALATION_INTERVAL": "escalationInterval",
	"SNAPSHOT_PATH":       "snapshot.path",
	"SNAPSHOT_DB_PATH":    "snapshot.dbPath",
	"SEEN_RETENTION":      "snapshot.seenRetentionSeconds",
	"WORKER_COUNT":        "worker.count",
	"WORKER_BUFFER_SIZE":  "worker.bufferSize",
}

// Load builds the configuration from built-in defaults, the file at path (if
// it exists) and EWS_* environment variables, in that order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider{cfg: Default()}, yaml.Parser()); err != nil {
		return nil, &ConfigError{Field: "defaults", Err: err}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, &ConfigError{Field: "file", Err: fmt.Errorf("error loading %s: %w", path, err)}
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Field: "file", Err: err}
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, envPrefix)]
	}), nil)
	if err != nil {
		return nil, &ConfigError{Field: "env", Err: err}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, &ConfigError{Field: "decode", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultsProvider feeds the built-in configuration to koanf as the lowest
// layer, so later layers merge maps key by key and replace lists whole.
type defaultsProvider struct {
	cfg *Config
}

func (p defaultsProvider) ReadBytes() ([]byte, error) {
	return json.Marshal(p.cfg)
}

func (p defaultsProvider) Read() (map[string]any, error) {
	return nil, errors.New("defaults provider does not support Read")
}

// Validate runs struct-level rules first, then semantic checks on names that
// have to resolve to known categories, severities and roles.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigError{Field: "schema", Err: err}
	}

	var errs []error
	add := func(field string, err error) {
		errs = append(errs, &ConfigError{Field: field, Err: err})
	}

	for cat, sev := range c.SeverityDefaults {
		if _, err := models.ParseCategory(cat); err != nil {
			add("severityDefaults", err)
		}
		if _, err := models.ParseSeverity(sev); err != nil {
			add("severityDefaults."+cat, err)
		}
	}

	names := make(map[string]bool)
	for i, t := range c.Triggers {
		field := fmt.Sprintf("triggers[%d]", i)
		if names[t.Name] {
			add(field, fmt.Errorf("duplicate trigger name %q", t.Name))
		}
		names[t.Name] = true
		if _, err := models.ParseCategory(t.Category); err != nil {
			add(field+".category", err)
		}
		if t.Severity != "" {
			if _, err := models.ParseSeverity(t.Severity); err != nil {
				add(field+".severity", err)
			}
		}
	}

	roles := make(map[models.Role]bool)
	for i, s := range c.Stakeholders {
		field := fmt.Sprintf("stakeholders[%d]", i)
		role := models.Role(strings.ToUpper(s.Role))
		if !role.Valid() {
			add(field+".role", fmt.Errorf("unknown role %q", s.Role))
		}
		roles[role] = true
		for cat, sev := range s.Thresholds {
			if _, err := models.ParseCategory(cat); err != nil {
				add(field+".thresholds", err)
			}
			if _, err := models.ParseSeverity(sev); err != nil {
				add(field+".thresholds."+cat, err)
			}
		}
	}

	checkRole := func(field, r string) {
		role := models.Role(strings.ToUpper(r))
		if !role.Valid() {
			add(field, fmt.Errorf("unknown role %q", r))
		} else if !roles[role] {
			add(field, fmt.Errorf("no stakeholder configured for role %q", r))
		}
	}
	checkRole("stakeholderRouting.topExecutive", c.StakeholderRouting.TopExecutive)
	checkRole("stakeholderRouting.oversight", c.StakeholderRouting.Oversight)
	for cat, rs := range c.StakeholderRouting.Categories {
		if _, err := models.ParseCategory(cat); err != nil {
			add("stakeholderRouting.categories", err)
		}
		for _, r := range rs {
			checkRole("stakeholderRouting.categories."+cat, r)
		}
	}

	for _, tier := range []string{TierCritical, TierHigh, TierMedium, TierLow} {
		if c.MonitoringIntervals[tier] < 1 {
			add("monitoringIntervals."+tier, errors.New("interval must be at least 1 second"))
		}
	}

	channelNames := make(map[string]bool)
	for i, ch := range c.Channels {
		if channelNames[ch.Name] {
			add(fmt.Sprintf("channels[%d]", i), fmt.Errorf("duplicate channel name %q", ch.Name))
		}
		channelNames[ch.Name] = true
	}

	sourceNames := make(map[string]bool)
	for i, s := range c.Sources {
		if sourceNames[s.Name] {
			add(fmt.Sprintf("sources[%d]", i), fmt.Errorf("duplicate source name %q", s.Name))
		}
		sourceNames[s.Name] = true
	}

	return errors.Join(errs...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c *Config) EscalationEvery() time.Duration { return seconds(c.EscalationInterval) }
func (c *Config) RedSLA() time.Duration          { return seconds(c.RedSLASeconds) }
func (c *Config) RestartBackoff() time.Duration  { return seconds(c.RestartBackoffSeconds) }
func (c *Config) ShutdownGrace() time.Duration   { return seconds(c.ShutdownGraceSeconds) }
func (c *Config) SnapshotEvery() time.Duration   { return seconds(c.Snapshot.IntervalSeconds) }
func (c *Config) SeenRetention() time.Duration   { return seconds(c.Snapshot.SeenRetentionSeconds) }

// PollInterval returns the polling interval configured for a tier.
func (c *Config) PollInterval(tier string) time.Duration {
	return seconds(c.MonitoringIntervals[tier])
}

// BaseSeverities returns the parsed severityDefaults. Entries that fail to
// parse are skipped; Validate reports them.
func (c *Config) BaseSeverities() map[models.RiskCategory]models.Severity {
	out := make(map[models.RiskCategory]models.Severity, len(c.SeverityDefaults))
	for cat, sev := range c.SeverityDefaults {
		pc, err := models.ParseCategory(cat)
		if err != nil {
			continue
		}
		ps, err := models.ParseSeverity(sev)
		if err != nil {
			continue
		}
		out[pc] = ps
	}
	return out
}

// StakeholderDirectory converts the configured stakeholders into models.
func (c *Config) StakeholderDirectory() []models.Stakeholder {
	out := make([]models.Stakeholder, 0, len(c.Stakeholders))
	for _, s := range c.Stakeholders {
		st := models.Stakeholder{
			Name:       s.Name,
			Role:       models.Role(strings.ToUpper(s.Role)),
			Contacts:   make(map[string]string, len(s.Contacts)),
			Thresholds: make(map[models.RiskCategory]models.Severity, len(s.Thresholds)),
		}
		for kind, addr := range s.Contacts {
			st.Contacts[strings.ToLower(kind)] = addr
		}
		for cat, sev := range s.Thresholds {
			pc, err := models.ParseCategory(cat)
			if err != nil {
				continue
			}
			ps, err := models.ParseSeverity(sev)
			if err != nil {
				continue
			}
			st.Thresholds[pc] = ps
		}
		out = append(out, st)
	}
	return out
}

// RoutingTable returns the base role list per category.
func (c *Config) RoutingTable() map[models.RiskCategory][]models.Role {
	out := make(map[models.RiskCategory][]models.Role, len(c.StakeholderRouting.Categories))
	for cat, roles := range c.StakeholderRouting.Categories {
		pc, err := models.ParseCategory(cat)
		if err != nil {
			continue
		}
		for _, r := range roles {
			out[pc] = append(out[pc], models.Role(strings.ToUpper(r)))
		}
	}
	return out
}
