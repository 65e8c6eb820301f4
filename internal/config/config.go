package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"comicweek/internal/infra/logx"
)

const rcName = ".comicweekrc"

// Config holds the settings of the release browser.
type Config struct {
	APIURL       string
	PageSize     int
	MinQueryLen  int
	Timeout      time.Duration
	SyncPath     string
	SingleIssues bool
	LogFile      string
	LogLevel     string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		APIURL:      "http://localhost:8000",
		PageSize:    12,
		MinQueryLen: 2,
		Timeout:     10 * time.Second,
		SyncPath:    "/api/marvel/sync",
	}
}

// DefaultPath returns $HOME/.comicweekrc.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return rcName
	}
	return filepath.Join(home, rcName)
}

// Load reads path on top of Defaults and applies COMICWEEK_* environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if isYAML(path) {
			err = decodeYAML(data, &cfg)
		} else {
			err = decodeRC(data, &cfg)
		}
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		logx.Debugf("config: %s not found, using defaults", path)
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("config: encode: %w", err)
		}
	} else {
		data = encodeRC(cfg)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if c.APIURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.PageSize < 1 || c.PageSize > 200 {
		return fmt.Errorf("config: PAGE_SIZE must be between 1 and 200, got %d", c.PageSize)
	}
	if c.MinQueryLen < 1 {
		return fmt.Errorf("config: MIN_QUERY_LEN must be at least 1, got %d", c.MinQueryLen)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: TIMEOUT must be positive, got %s", c.Timeout)
	}
	if !strings.HasPrefix(c.SyncPath, "/") {
		return fmt.Errorf("config: SYNC_PATH must start with /, got %q", c.SyncPath)
	}
	if c.LogLevel != "" {
		if _, err := logx.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config: LOG_LEVEL: %w", err)
		}
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decodeRC(data []byte, cfg *Config) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("line %d: expected KEY=VALUE", n)
		}
		if err := set(cfg, strings.TrimSpace(key), strings.TrimSpace(val)); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}

func set(cfg *Config, key, val string) error {
	var err error
	switch strings.ToUpper(key) {
	case "API_URL":
		cfg.APIURL = strings.TrimRight(val, "/")
	case "PAGE_SIZE":
		cfg.PageSize, err = strconv.Atoi(val)
	case "MIN_QUERY_LEN":
		cfg.MinQueryLen, err = strconv.Atoi(val)
	case "TIMEOUT":
		cfg.Timeout, err = time.ParseDuration(val)
	case "SYNC_PATH":
		cfg.SyncPath = val
	case "SINGLE_ISSUES":
		cfg.SingleIssues, err = strconv.ParseBool(val)
	case "LOG_FILE":
		cfg.LogFile = val
	case "LOG_LEVEL":
		cfg.LogLevel = val
	default:
		logx.Debugf("config: ignoring unknown key %s", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func encodeRC(cfg Config) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "API_URL=%s\n", cfg.APIURL)
	fmt.Fprintf(&b, "PAGE_SIZE=%d\n", cfg.PageSize)
	fmt.Fprintf(&b, "MIN_QUERY_LEN=%d\n", cfg.MinQueryLen)
	fmt.Fprintf(&b, "TIMEOUT=%s\n", cfg.Timeout)
	fmt.Fprintf(&b, "SYNC_PATH=%s\n", cfg.SyncPath)
	fmt.Fprintf(&b, "SINGLE_ISSUES=%t\n", cfg.SingleIssues)
	if cfg.LogFile != "" {
		fmt.Fprintf(&b, "LOG_FILE=%s\n", cfg.LogFile)
	}
	if cfg.LogLevel != "" {
		fmt.Fprintf(&b, "LOG_LEVEL=%s\n", cfg.LogLevel)
	}
	return b.Bytes()
}

// fileConfig is the YAML shape; zero values keep the defaults.
type fileConfig struct {
	APIURL       string `yaml:"api_url,omitempty"`
	PageSize     int    `yaml:"page_size,omitempty"`
	MinQueryLen  int    `yaml:"min_query_len,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	SyncPath     string `yaml:"sync_path,omitempty"`
	SingleIssues *bool  `yaml:"single_issues,omitempty"`
	LogFile      string `yaml:"log_file,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (c Config) MarshalYAML() (interface{}, error) {
	single := c.SingleIssues
	return fileConfig{
		APIURL:       c.APIURL,
		PageSize:     c.PageSize,
		MinQueryLen:  c.MinQueryLen,
		Timeout:      c.Timeout.String(),
		SyncPath:     c.SyncPath,
		SingleIssues: &single,
		LogFile:      c.LogFile,
		LogLevel:     c.LogLevel,
	}, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.APIURL != "" {
		cfg.APIURL = strings.TrimRight(fc.APIURL, "/")
	}
	if fc.PageSize != 0 {
		cfg.PageSize = fc.PageSize
	}
	if fc.MinQueryLen != 0 {
		cfg.MinQueryLen = fc.MinQueryLen
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.SyncPath != "" {
		cfg.SyncPath = fc.SyncPath
	}
	if fc.SingleIssues != nil {
		cfg.SingleIssues = *fc.SingleIssues
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	return nil
}

func applyEnv(cfg *Config) error {
	for _, kv := range [][2]string{
		{"COMICWEEK_API_URL", "API_URL"},
		{"COMICWEEK_PAGE_SIZE", "PAGE_SIZE"},
		{"COMICWEEK_LOG_LEVEL", "LOG_LEVEL"},
	} {
		v := strings.TrimSpace(os.Getenv(kv[0]))
		if v == "" {
			continue
		}
		if err := set(cfg, kv[1], v); err != nil {
			return fmt.Errorf("config: %s: %w", kv[0], err)
		}
	}
	return nil
}
