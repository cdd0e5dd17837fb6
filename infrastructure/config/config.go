package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	IdentityStatic = "static"
	IdentityOAuth  = "oauth"

	// ConfigFileEnv points at an optional YAML file whose values act as
	// defaults underneath the environment.
	ConfigFileEnv = "PORTALGATE_CONFIG"
)

type Config struct {
	Environment string
	ServerHost  string
	ServerPort  string
	StaticDir   string
	// TrustedProxies are the peers whose X-Forwarded-For / X-Real-IP headers
	// are believed. Empty means the socket address is the client.
	TrustedProxies []netip.Prefix

	BackendBaseURL         string
	BackendMemberLoginPath string
	BackendAdminLoginPath  string
	BackendStaffLoginPath  string
	BackendTimeout         time.Duration

	PersistenceDriver    string
	PersistenceNamespace string
	DatabaseURL          string
	RedisURL             string

	ClaimEmail    string
	ClaimFullName string
	ClaimRole     string
	ClaimUserID   string

	IdentityProvider  string
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	IdentityTimeout   time.Duration

	RateLimitEnabled       bool
	RateLimitLoginAttempts int
	RateLimitLoginWindow   time.Duration
	RateLimitBlockDuration time.Duration

	LogLevel               string
	LogFormat              string
	LogCorrelationIDHeader string

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

var (
	ErrMissingBackendURL    = errors.New("BACKEND_BASE_URL is required")
	ErrInvalidBackendURL    = errors.New("BACKEND_BASE_URL must be an absolute http(s) URL")
	ErrInvalidDriver        = errors.New("invalid PERSISTENCE_DRIVER")
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required for sql persistence")
	ErrMissingRedisURL      = errors.New("REDIS_URL is required for redis persistence")
	ErrInvalidDuration      = errors.New("invalid duration format")
	ErrInvalidIdentity      = errors.New("invalid IDENTITY_PROVIDER")
	ErrMissingOAuthSettings = errors.New("OAUTH_TOKEN_URL and OAUTH_CLIENT_ID are required for the oauth identity provider")
	ErrMissingNamespace     = errors.New("PERSISTENCE_NAMESPACE cannot be empty")
	ErrInvalidTrustedProxy  = errors.New("TRUSTED_PROXIES entries must be IP addresses or CIDR prefixes")
)

// fileConfig is the YAML layout of PORTALGATE_CONFIG.
type fileConfig struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host      string `yaml:"host"`
		Port      string `yaml:"port"`
		StaticDir      string   `yaml:"static_dir"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Backend struct {
		BaseURL         string `yaml:"base_url"`
		MemberLoginPath string `yaml:"member_login_path"`
		AdminLoginPath  string `yaml:"admin_login_path"`
		StaffLoginPath  string `yaml:"staff_login_path"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"backend"`
	Persistence struct {
		Driver      string `yaml:"driver"`
		Namespace   string `yaml:"namespace"`
		DatabaseURL string `yaml:"database_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"persistence"`
	Claims struct {
		Email    string `yaml:"email"`
		FullName string `yaml:"full_name"`
		Role     string `yaml:"role"`
		UserID   string `yaml:"user_id"`
	} `yaml:"claims"`
	Identity struct {
		Provider     string `yaml:"provider"`
		TokenURL     string `yaml:"token_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"identity"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var file fileConfig
	if path := os.Getenv(ConfigFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENV", orDefault(file.Environment, "development")),
		ServerHost:  getEnvOrDefault("SERVER_HOST", orDefault(file.Server.Host, "localhost")),
		ServerPort:  getEnvOrDefault("SERVER_PORT", orDefault(file.Server.Port, "8080")),
		StaticDir:   getEnvOrDefault("STATIC_DIR", orDefault(file.Server.StaticDir, "web")),

		BackendBaseURL:         getEnvOrDefault("BACKEND_BASE_URL", file.Backend.BaseURL),
		BackendMemberLoginPath: getEnvOrDefault("BACKEND_MEMBER_LOGIN_PATH", orDefault(file.Backend.MemberLoginPath, "/api/auth/member/login")),
		BackendAdminLoginPath:  getEnvOrDefault("BACKEND_ADMIN_LOGIN_PATH", orDefault(file.Backend.AdminLoginPath, "/api/auth/admin/login")),
		BackendStaffLoginPath:  getEnvOrDefault("BACKEND_STAFF_LOGIN_PATH", orDefault(file.Backend.StaffLoginPath, "/api/auth/staff/login")),

		PersistenceDriver:    strings.ToLower(getEnvOrDefault("PERSISTENCE_DRIVER", orDefault(file.Persistence.Driver, DriverMemory))),
		PersistenceNamespace: getEnvOrDefault("PERSISTENCE_NAMESPACE", orDefault(file.Persistence.Namespace, "portalgate")),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", file.Persistence.DatabaseURL),
		RedisURL:             getEnvOrDefault("REDIS_URL", orDefault(file.Persistence.RedisURL, "redis://localhost:6379/0")),

		ClaimEmail:    getEnvOrDefault("CLAIM_EMAIL", file.Claims.Email),
		ClaimFullName: getEnvOrDefault("CLAIM_FULL_NAME", file.Claims.FullName),
		ClaimRole:     getEnvOrDefault("CLAIM_ROLE", file.Claims.Role),
		ClaimUserID:   getEnvOrDefault("CLAIM_USER_ID", file.Claims.UserID),

		IdentityProvider:  strings.ToLower(getEnvOrDefault("IDENTITY_PROVIDER", orDefault(file.Identity.Provider, IdentityStatic))),
		OAuthTokenURL:     getEnvOrDefault("OAUTH_TOKEN_URL", file.Identity.TokenURL),
		OAuthClientID:     getEnvOrDefault("OAUTH_CLIENT_ID", file.Identity.ClientID),
		OAuthClientSecret: getEnvOrDefault("OAUTH_CLIENT_SECRET", file.Identity.ClientSecret),
		OAuthRedirectURL:  getEnvOrDefault("OAUTH_REDIRECT_URL", file.Identity.RedirectURL),

		RateLimitEnabled:       getEnvOrDefaultBool("RATE_LIMIT_ENABLED", false),
		RateLimitLoginAttempts: getEnvOrDefaultInt("RATE_LIMIT_LOGIN_ATTEMPTS", 10),

		LogLevel:               getEnvOrDefault("LOG_LEVEL", orDefault(file.Log.Level, "info")),
		LogFormat:              getEnvOrDefault("LOG_FORMAT", orDefault(file.Log.Format, "json")),
		LogCorrelationIDHeader: getEnvOrDefault("LOG_CORRELATION_ID_HEADER", "X-Correlation-ID"),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),
	}

	var err error
	if cfg.BackendTimeout, err = parseDuration(getEnvOrDefault("BACKEND_TIMEOUT", orDefault(file.Backend.Timeout, "10"))); err != nil {
		return nil, ErrInvalidDuration
	}
	if cfg.IdentityTimeout, err = parseDuration(getEnvOrDefault("IDENTITY_TIMEOUT", orDefault(file.Identity.Timeout, "5"))); err != nil {
		return nil, ErrInvalidDuration
	}
	if cfg.RateLimitLoginWindow, err = parseDuration(getEnvOrDefault("RATE_LIMIT_LOGIN_WINDOW", "900")); err != nil {
		return nil, ErrInvalidDuration
	}
	if cfg.RateLimitBlockDuration, err = parseDuration(getEnvOrDefault("RATE_LIMIT_BLOCK_DURATION", "1800")); err != nil {
		return nil, ErrInvalidDuration
	}

	proxies := file.Server.TrustedProxies
	if env := os.Getenv("TRUSTED_PROXIES"); env != "" {
		proxies = parseAllowedOrigins(env)
	}
	if cfg.TrustedProxies, err = ParseTrustedProxies(proxies); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseTrustedProxies accepts CIDR prefixes and bare addresses; a bare
// address becomes a single-host prefix.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, v)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, v)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Validate checks the settings every host needs. Hosts call it after Load so
// tests can build partial configs by hand.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return ErrMissingBackendURL
	}
	u, err := url.Parse(c.BackendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBackendURL
	}

	switch c.PersistenceDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.PersistenceDriver)
	}
	if strings.TrimSpace(c.PersistenceNamespace) == "" {
		return ErrMissingNamespace
	}

	switch c.IdentityProvider {
	case IdentityStatic:
	case IdentityOAuth:
		if c.OAuthTokenURL == "" || c.OAuthClientID == "" {
			return ErrMissingOAuthSettings
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, c.IdentityProvider)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

// parseDuration interprets bare integers as seconds, anything else as a Go
// duration string.
func parseDuration(value string) (time.Duration, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func parseAllowedOrigins(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
