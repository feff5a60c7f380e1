// Package config loads omniparse settings from a config file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jarredhawkins/omniparse/internal/lang"
	"github.com/jarredhawkins/omniparse/internal/parser"
)

// EnvPrefix prefixes environment overrides, e.g. OMNIPARSE_LOG_LEVEL.
const EnvPrefix = "OMNIPARSE"

type Config struct {
	LogLevel      string         `mapstructure:"log_level"`
	LogFile       string         `mapstructure:"log_file"`
	Workers       int            `mapstructure:"workers"`
	WatchDebounce time.Duration  `mapstructure:"watch_debounce"`
	HTTPAddr      string         `mapstructure:"http_addr"`
	Languages     []LanguageSpec `mapstructure:"languages"`
}

// LanguageSpec describes a user defined language.
type LanguageSpec struct {
	Name                  string     `mapstructure:"name"`
	Extensions            []string   `mapstructure:"extensions"`
	Filenames             []string   `mapstructure:"filenames"`
	WhitespaceInsensitive bool       `mapstructure:"whitespace_insensitive"`
	SkipWhitespace        bool       `mapstructure:"skip_whitespace"`
	MaxDepth              int        `mapstructure:"max_depth"`
	Rules                 []RuleSpec `mapstructure:"rules"`
}

// RuleSpec describes one rule. The open tag is either a literal (Open) or
// a regular expression (OpenRegex); the close tag is a literal, a regular
// expression or, with AutoClose, nothing at all.
type RuleSpec struct {
	Name        string `mapstructure:"name"`
	SubParse    bool   `mapstructure:"sub_parse"`
	Open        string `mapstructure:"open"`
	OpenEscape  string `mapstructure:"open_escape"`
	OpenRegex   string `mapstructure:"open_regex"`
	Close       string `mapstructure:"close"`
	CloseEscape string `mapstructure:"close_escape"`
	CloseRegex  string `mapstructure:"close_regex"`
	AutoClose   bool   `mapstructure:"auto_close"`
	WordStart   bool   `mapstructure:"word_start"`
	LineStart   bool   `mapstructure:"line_start"`
}

// Defaults used when neither the file nor the environment set a value.
var defaults = map[string]any{
	"log_level":      "info",
	"log_file":       "",
	"workers":        8,
	"watch_debounce": 100 * time.Millisecond,
	"http_addr":      ":8090",
}

// Load reads the config file at path. With an empty path it looks for
// omniparse.yaml in the working directory and falls back to defaults
// when there is none.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("omniparse")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return &cfg, nil
}

// LanguageSet returns the built-in languages with the configured ones
// registered on top.
func (c *Config) LanguageSet() (*lang.Set, error) {
	set := lang.Defaults()
	for _, spec := range c.Languages {
		l, err := spec.Language()
		if err != nil {
			return nil, err
		}
		if err := set.Register(l); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Language converts the spec into an uncompiled language.
func (s LanguageSpec) Language() (*lang.Language, error) {
	l := &lang.Language{
		Name:       s.Name,
		Extensions: s.Extensions,
		Filenames:  s.Filenames,
	}
	if s.WhitespaceInsensitive {
		l.Options = append(l.Options, parser.WithWhitespaceInsensitive())
	}
	if s.SkipWhitespace {
		l.Options = append(l.Options, parser.WithoutWhitespaceLeaves())
	}
	if s.MaxDepth > 0 {
		l.Options = append(l.Options, parser.WithMaxDepth(s.MaxDepth))
	}
	for _, rs := range s.Rules {
		rule, err := rs.Rule()
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", s.Name, err)
		}
		l.Rules = append(l.Rules, rule)
	}
	return l, nil
}

// Rule converts the spec into a parser rule.
func (s RuleSpec) Rule() (parser.Rule, error) {
	if s.Open != "" && s.OpenRegex != "" {
		return parser.Rule{}, fmt.Errorf("rule %q: open and open_regex are exclusive", s.Name)
	}
	if s.AutoClose && (s.Close != "" || s.CloseRegex != "") {
		return parser.Rule{}, fmt.Errorf("rule %q: auto_close excludes close and close_regex", s.Name)
	}
	if s.Close != "" && s.CloseRegex != "" {
		return parser.Rule{}, fmt.Errorf("rule %q: close and close_regex are exclusive", s.Name)
	}

	var open parser.Matcher
	if s.OpenRegex != "" {
		open = parser.Regex(s.OpenRegex)
	} else {
		open = parser.EscapedLiteral(s.Open, s.OpenEscape)
	}
	if s.WordStart {
		open = parser.WordStart(open)
	}
	if s.LineStart {
		open = parser.LineStart(open)
	}

	var closer parser.Matcher
	switch {
	case s.AutoClose:
		closer = parser.AutoClose()
	case s.CloseRegex != "":
		closer = parser.Regex(s.CloseRegex)
	default:
		closer = parser.EscapedLiteral(s.Close, s.CloseEscape)
	}

	return parser.Rule{Name: s.Name, SubParse: s.SubParse, Open: open, Close: closer}, nil
}
