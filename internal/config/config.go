package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Learning  LearningConfig  `yaml:"learning"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig for the optional async learning-update queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level         string `yaml:"level"` // debug, info, warn, error
	RetentionDays int    `yaml:"retention_days"`
}

// RateLimitConfig applies to feedback submission only.
type RateLimitConfig struct {
	FeedbackRPS   float64 `yaml:"feedback_rps"`
	FeedbackBurst int     `yaml:"feedback_burst"`
}

// NotifyConfig lists the IM webhooks alerted when the safety governor
// changes state or the drift check finds inconsistent stats.
type NotifyConfig struct {
	Channels []NotifyChannel `yaml:"channels"`
}

type NotifyChannel struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // wechat_work, dingtalk, feishu, slack, discord, teams, telegram, generic
	Webhook string `yaml:"webhook"`
	Secret  string `yaml:"secret"`
	Extra   string `yaml:"extra"` // telegram chat_id
}

// LearningConfig holds the tunable constants of the feedback aggregation,
// recommendation and safety subsystems.
type LearningConfig struct {
	// WeightThreshold is the minimum effectiveness*confidence weight a heuristic
	// needs before it contributes prompt modifiers.
	WeightThreshold float64 `yaml:"weight_threshold"`
	// ConfidenceSaturation is the observation count at which confidence reaches 1.
	ConfidenceSaturation int `yaml:"confidence_saturation"`
	// SuccessRating is the lowest rating counted as a successful observation.
	SuccessRating int `yaml:"success_rating"`
	// IssuePenaltyRating is folded into avoid_<issue> heuristics when an issue is flagged.
	IssuePenaltyRating int `yaml:"issue_penalty_rating"`
	MinQualitySamples  int `yaml:"min_quality_samples"`
	RecentPrompts      int `yaml:"recent_prompts"`
	PromptSampleLength int `yaml:"prompt_sample_length"`

	SafetyWindow        int     `yaml:"safety_window"`
	SafetyMinEvents     int     `yaml:"safety_min_events"`
	SafetyMinAvgRating  float64 `yaml:"safety_min_avg_rating"`
	SafetyCriticalRatio float64 `yaml:"safety_critical_ratio"`
	SafetyHysteresis    bool    `yaml:"safety_hysteresis"`

	// ForceBaseline bypasses adaptation entirely (static quality override).
	ForceBaseline bool `yaml:"force_baseline"`

	// DriftCheckSchedule is a cron spec for replaying feedback against the
	// stored stats. Empty disables the scheduled check.
	DriftCheckSchedule string `yaml:"drift_check_schedule"`
	// DriftTolerance is the allowed average_rating (x100) difference.
	DriftTolerance int `yaml:"drift_tolerance"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		// Unmarshal over the defaults so partial files keep sane values.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	cfg.Learning.normalize()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "flashcards.db",
		},
		JWT: JWTConfig{
			Secret:     "flashcards-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 30,
		},
		RateLimit: RateLimitConfig{
			FeedbackRPS:   5,
			FeedbackBurst: 10,
		},
		Learning: DefaultLearningConfig(),
	}
}

func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		WeightThreshold:      0.7,
		ConfidenceSaturation: 10,
		SuccessRating:        4,
		IssuePenaltyRating:   1,
		MinQualitySamples:    2,
		RecentPrompts:        5,
		PromptSampleLength:   50,
		SafetyWindow:         5,
		SafetyMinEvents:      3,
		SafetyMinAvgRating:   2.0,
		SafetyCriticalRatio:  0.6,
		DriftCheckSchedule:   "@daily",
		DriftTolerance:       1,
	}
}

// normalize replaces out-of-range values with defaults. Zero is never a
// meaningful setting for the counts or thresholds; a zero drift tolerance is.
func (l *LearningConfig) normalize() {
	def := DefaultLearningConfig()
	if l.WeightThreshold <= 0 {
		l.WeightThreshold = def.WeightThreshold
	}
	if l.ConfidenceSaturation <= 0 {
		l.ConfidenceSaturation = def.ConfidenceSaturation
	}
	if l.SuccessRating < 1 || l.SuccessRating > 5 {
		l.SuccessRating = def.SuccessRating
	}
	if l.IssuePenaltyRating < 1 || l.IssuePenaltyRating > 5 {
		l.IssuePenaltyRating = def.IssuePenaltyRating
	}
	if l.MinQualitySamples <= 0 {
		l.MinQualitySamples = def.MinQualitySamples
	}
	if l.RecentPrompts <= 0 {
		l.RecentPrompts = def.RecentPrompts
	}
	if l.PromptSampleLength <= 0 {
		l.PromptSampleLength = def.PromptSampleLength
	}
	if l.SafetyWindow <= 0 {
		l.SafetyWindow = def.SafetyWindow
	}
	if l.SafetyMinEvents <= 0 {
		l.SafetyMinEvents = def.SafetyMinEvents
	}
	if l.SafetyMinAvgRating <= 0 {
		l.SafetyMinAvgRating = def.SafetyMinAvgRating
	}
	if l.SafetyCriticalRatio <= 0 {
		l.SafetyCriticalRatio = def.SafetyCriticalRatio
	}
	if l.DriftTolerance < 0 {
		l.DriftTolerance = def.DriftTolerance
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if v := os.Getenv("LEARNING_FORCE_BASELINE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Learning.ForceBaseline = b
		}
	}
	if v := os.Getenv("LEARNING_WEIGHT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Learning.WeightThreshold = f
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
