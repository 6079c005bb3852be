package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
)

type Config struct {
	Port           int
	AllowedOrigins []string
	PublicURL      string

	WordlistDir     string
	WordlistDSN     string
	RequireWordlist bool
	LetterPolicy    engine.LetterPolicy

	GracePeriod time.Duration
	Settings    engine.Settings
	MaxPlayers  int
	BcryptCost  int

	ClientRate  float64
	ClientBurst int

	LogLevel  string
	LogFormat string
}

func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Every invalid variable is reported.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	defaults := engine.DefaultSettings()

	c := Config{
		Port:            p.int("PORT", 8080),
		AllowedOrigins:  p.list("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		PublicURL:       strings.TrimRight(p.str("PUBLIC_URL", "http://localhost:3000"), "/"),
		WordlistDir:     p.str("WORDLIST_DIR", "wordlists"),
		WordlistDSN:     p.str("WORDLIST_DSN", ""),
		RequireWordlist: p.bool("REQUIRE_WORDLIST", true),
		GracePeriod:     p.duration("ROOM_GRACE_PERIOD", 30*time.Minute),
		Settings: engine.Settings{
			RoundTime:   p.int("ROUND_TIME_SECONDS", defaults.RoundTime),
			TotalRounds: p.int("TOTAL_ROUNDS", defaults.TotalRounds),
			Categories:  p.list("CATEGORIES", defaults.Categories),
		},
		MaxPlayers:  p.int("MAX_PLAYERS", engine.DefaultMaxPlayers),
		BcryptCost:  p.int("BCRYPT_COST", bcrypt.DefaultCost),
		ClientRate:  p.float("CLIENT_RATE", 10),
		ClientBurst: p.int("CLIENT_BURST", 20),
		LogLevel:    p.str("LOG_LEVEL", "info"),
		LogFormat:   p.str("LOG_FORMAT", "json"),
	}

	policy, err := engine.ParseLetterPolicy(p.str("LETTER_POLICY", string(engine.LetterPolicyWeighted)))
	p.fail("LETTER_POLICY", err)
	c.LetterPolicy = policy

	p.check("PORT", c.Port > 0 && c.Port < 65536, "must be a port number")
	p.check("ROUND_TIME_SECONDS", c.Settings.RoundTime > 0, "must be positive")
	p.check("TOTAL_ROUNDS", c.Settings.TotalRounds > 0, "must be positive")
	p.check("CATEGORIES", len(c.Settings.Categories) > 0, "must name at least one category")
	p.check("MAX_PLAYERS", c.MaxPlayers >= 2, "must allow at least two players")
	p.check("BCRYPT_COST", c.BcryptCost >= bcrypt.MinCost && c.BcryptCost <= bcrypt.MaxCost, "out of range")
	p.check("ROOM_GRACE_PERIOD", c.GracePeriod >= 0, "must not be negative")
	p.check("CLIENT_RATE", c.ClientRate > 0, "must be positive")
	p.check("CLIENT_BURST", c.ClientBurst > 0, "must be positive")
	p.check("LOG_FORMAT", c.LogFormat == "json" || c.LogFormat == "console", "must be json or console")

	if p.err != nil {
		return Config{}, p.err
	}
	return c, nil
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key string, err error) {
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
	}
}

func (p *parser) check(key string, ok bool, msg string) {
	if !ok {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %s", key, msg))
	}
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	p.fail(key, err)
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	p.fail(key, err)
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	p.fail(key, err)
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	p.fail(key, err)
	return d
}

func (p *parser) list(key string, def []string) []string {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
