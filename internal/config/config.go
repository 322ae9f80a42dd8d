package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	defaultAppName         = "FeeToken"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 7 * 24 * time.Hour
	defaultTokenName       = "Congo Fee Token"
	defaultTokenSymbol     = "CFT"
	defaultFeeRate         = 300
	defaultLoginRate       = 5
	defaultEventStream     = "feetoken:events"
	defaultEventLogCap     = 10_000
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	tokenConfigFileEnvVar  = "TOKEN_CONFIG_FILE"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	LogFile        string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	LoginRatePerMin int

	// AdminSecret bootstraps API credentials for the admin address on startup.
	AdminSecret string
	EventStream string

	// EventLogCapacity bounds the in-process log behind GET /api/v1/events.
	EventLogCapacity int

	Token TokenConfig
}

// TokenConfig holds the genesis parameters of the token. It can be loaded
// from the YAML file named by TOKEN_CONFIG_FILE; environment variables win.
type TokenConfig struct {
	Name           string `yaml:"name"`
	Symbol         string `yaml:"symbol"`
	Address        string `yaml:"address"`
	Deployer       string `yaml:"deployer"`
	Admin          string `yaml:"admin"`
	InitialFeeRate uint64 `yaml:"-"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		Env:             getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFile:         os.Getenv("LOG_FILE"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RefreshSecret:   os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:  defaultAccessTTL,
		RefreshTokenTTL: defaultRefreshTTL,
		LoginRatePerMin: defaultLoginRate,
		AdminSecret:     os.Getenv("ADMIN_SECRET"),
		EventStream:     getEnv("EVENT_STREAM", defaultEventStream),
		Token: TokenConfig{
			Name:           defaultTokenName,
			Symbol:         defaultTokenSymbol,
			InitialFeeRate: defaultFeeRate,
		},
	}

	if path := os.Getenv(tokenConfigFileEnvVar); path != "" {
		if err := loadTokenFile(path, &cfg.Token); err != nil {
			return Config{}, err
		}
	}
	overrideToken(&cfg.Token)

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
	} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("LOGIN_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE_PER_MIN: %w", err)
		}
		cfg.LoginRatePerMin = n
	}

	cfg.EventLogCapacity = defaultEventLogCap
	if v := os.Getenv("EVENT_LOG_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid EVENT_LOG_CAPACITY %q", v)
		}
		cfg.EventLogCapacity = n
	}

	if v := os.Getenv("INITIAL_FEE_RATE_BPS"); v != "" {
		rate, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INITIAL_FEE_RATE_BPS: %w", err)
		}
		cfg.Token.InitialFeeRate = rate
	}

	if err := cfg.Token.validate(); err != nil {
		return Config{}, err
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
		}
	} else {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "dev-access-secret"
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = "dev-refresh-secret"
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment, where
// Postgres and Redis are optional.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// TokenAddress returns the token's own address.
func (t TokenConfig) TokenAddress() common.Address { return common.HexToAddress(t.Address) }

// DeployerAddress returns the genesis recipient.
func (t TokenConfig) DeployerAddress() common.Address { return common.HexToAddress(t.Deployer) }

// AdminAddress returns the initial owner.
func (t TokenConfig) AdminAddress() common.Address { return common.HexToAddress(t.Admin) }

func (t TokenConfig) validate() error {
	for _, f := range []struct{ name, value string }{
		{"TOKEN_ADDRESS", t.Address},
		{"DEPLOYER_ADDRESS", t.Deployer},
		{"ADMIN_ADDRESS", t.Admin},
	} {
		if !common.IsHexAddress(f.value) {
			return fmt.Errorf("%s must be a hex address, got %q", f.name, f.value)
		}
		if common.HexToAddress(f.value) == (common.Address{}) {
			return fmt.Errorf("%s must not be the zero address", f.name)
		}
	}
	return nil
}

func loadTokenFile(path string, dst *TokenConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var parsed struct {
		Token struct {
			TokenConfig `yaml:",inline"`
			// a pointer so that an explicit zero rate is honored
			InitialFeeRate *uint64 `yaml:"initialFeeRateBps"`
		} `yaml:"token"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	src := parsed.Token.TokenConfig
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Symbol != "" {
		dst.Symbol = src.Symbol
	}
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.Deployer != "" {
		dst.Deployer = src.Deployer
	}
	if src.Admin != "" {
		dst.Admin = src.Admin
	}
	if parsed.Token.InitialFeeRate != nil {
		dst.InitialFeeRate = *parsed.Token.InitialFeeRate
	}
	return nil
}

func overrideToken(t *TokenConfig) {
	t.Name = getEnv("TOKEN_NAME", t.Name)
	t.Symbol = getEnv("TOKEN_SYMBOL", t.Symbol)
	t.Address = getEnv("TOKEN_ADDRESS", t.Address)
	t.Deployer = getEnv("DEPLOYER_ADDRESS", t.Deployer)
	t.Admin = getEnv("ADMIN_ADDRESS", t.Admin)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
