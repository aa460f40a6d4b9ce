package stratum

import (
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config is the parsed connection descriptor. It is built once by ParseURL
// (or by hand) and immutable afterwards; backends copy what they need from
// it and never write back.
type Config struct {
	// Scheme selects the backend: "file", "sqlite" and "duckdb" are served
	// by the embedded backend, "http"/"https" by the stateless HTTP backend
	// and "stratum"/"stratums" by the pipelined backend.
	Scheme string

	// Path is the database file path for embedded backends (":memory:" for
	// an in-memory database).
	Path string

	// Addr is the host:port of a pipelined endpoint.
	Addr string

	// URL is the endpoint URL for HTTP backends, stripped of auth
	// parameters.
	URL string

	// AuthToken is the bearer token sent to remote backends.
	AuthToken string

	// QueryURL optionally directs read-only statements to a different HTTP
	// endpoint than writes.
	QueryURL string

	// TLS is set for the stratums scheme.
	TLS bool
}

// authParams are the query parameters a descriptor may carry the token in.
var authParams = []string{"jwt", "authToken", "auth_token"}

// ParseURL parses a connection descriptor into a Config.
//
// Accepted forms:
//
//	/path/to/db.sqlite         plain path, embedded sqlite
//	:memory:                   in-memory embedded sqlite
//	file:/path/to/db.sqlite    embedded sqlite
//	duckdb:/path/to/db.duckdb  embedded duckdb
//	http://host/path?jwt=T     stateless HTTP backend
//	https://host/path?jwt=T    stateless HTTP backend, token required
//	stratum://host:port?jwt=T  pipelined backend
//	stratums://host:port?jwt=T pipelined backend over TLS, token required
//
// Unknown schemes fail with ErrConfiguration; nothing ever falls back to a
// guessed backend.
func ParseURL(raw string) (Config, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Config{}, ConfigError("empty connection descriptor")
	}
	if raw == ":memory:" {
		return Config{Scheme: "file", Path: ":memory:"}, nil
	}
	scheme, rest, ok := splitScheme(raw)
	if !ok {
		// No scheme at all: a local filesystem path.
		return Config{Scheme: "file", Path: raw}, nil
	}

	switch scheme {
	case "file", "sqlite", "duckdb":
		path := strings.TrimPrefix(rest, "//")
		if path == "" {
			return Config{}, ConfigError("descriptor %q has no database path", raw)
		}
		return Config{Scheme: scheme, Path: path}, nil

	case "http", "https", "stratum", "stratums":
		u, err := url.Parse(raw)
		if err != nil {
			return Config{}, ConfigError("cannot parse descriptor %q: %v", raw, err)
		}
		if u.Host == "" {
			return Config{}, ConfigError("descriptor %q has no host", raw)
		}
		cfg := Config{Scheme: scheme, TLS: scheme == "https" || scheme == "stratums"}

		query := u.Query()
		for _, p := range authParams {
			if tok := query.Get(p); tok != "" {
				cfg.AuthToken = tok
			}
			query.Del(p)
		}
		if q := query.Get("queryURL"); q != "" {
			cfg.QueryURL = q
			query.Del("queryURL")
		}
		u.RawQuery = query.Encode()

		if scheme == "stratum" || scheme == "stratums" {
			cfg.Addr = u.Host
			if !strings.Contains(cfg.Addr, ":") {
				cfg.Addr += ":" + defaultPipelinePort
			}
		} else {
			cfg.URL = u.String()
		}
		if err := cfg.checkAuth(); err != nil {
			return Config{}, err
		}
		return cfg, nil

	default:
		return Config{}, ConfigError("unsupported URL scheme %q in %q", scheme, raw)
	}
}

const defaultPipelinePort = "5433"

// checkAuth enforces descriptor-time credential rules: secure remote
// schemes require a token, and a token that is a JWT must not already be
// expired. Both fail here, before any dial.
func (cfg Config) checkAuth() error {
	if cfg.AuthToken == "" {
		if cfg.Scheme == "https" || cfg.Scheme == "stratums" {
			return ConfigError("scheme %q requires an auth token (jwt= parameter)", cfg.Scheme)
		}
		return nil
	}
	// Opaque tokens pass through untouched; only well-formed JWTs get the
	// expiry check.
	if strings.Count(cfg.AuthToken, ".") != 2 {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(cfg.AuthToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return ConfigError("auth token expired at %s", exp.Format(time.RFC3339))
	}
	return nil
}

// splitScheme splits "scheme:rest" when raw begins with a plausible URL
// scheme. Single-letter prefixes are left alone so Windows drive paths stay
// plain paths.
func splitScheme(raw string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(raw, ':')
	if i < 2 {
		return "", "", false
	}
	scheme = strings.ToLower(raw[:i])
	for _, r := range scheme {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '+' && r != '-' && r != '.' {
			return "", "", false
		}
	}
	return scheme, raw[i+1:], true
}
