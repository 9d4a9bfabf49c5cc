package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL   = "http://localhost:5000/api"
	DefaultCookieName   = "bcw_visitor"
	TokenBackendBoltDB  = "boltdb"
	TokenBackendRedis   = "redis"
	PasswordStrategy    = "password"
	IdentityProviderKey = "provider"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string        `yaml:"git_commit" envconfig:"DBCW_GIT_COMMIT"`
	GitTag                  string        `yaml:"git_tag" envconfig:"DBCW_GIT_TAG"`
	BuildTime               string        `yaml:"build_time" envconfig:"DBCW_BUILD_TIME"`
	IsProduction            bool          `yaml:"is_production" envconfig:"DBCW_IS_PRODUCTION"`
	LogLevel                zapcore.Level `yaml:"log_level" envconfig:"DBCW_LOG_LEVEL"`
	LogFolder               string        `yaml:"log_folder" envconfig:"DBCW_LOG_FOLDER"`
	LogMaxSize              int           `yaml:"log_max_size" envconfig:"DBCW_LOG_MAX_SIZE"`
	OpsEndpointsEnable      bool          `yaml:"ops_endpoints_enable" envconfig:"DBCW_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool          `yaml:"profiler_endpoints_enable" envconfig:"DBCW_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig  `yaml:"server"`
	API                     APIConfig     `yaml:"api"`
	Session                 SessionConfig `yaml:"session"`
	Auth                    AuthConfig    `yaml:"auth"`
	Redis                   RedisConfig   `yaml:"redis"`
	BoltDB                  BoltDBConfig  `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"DBCW_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"DBCW_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"DBCW_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"DBCW_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"DBCW_SERVER_REQUEST_TIMEOUT"` // Time to wait for a page to render
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"DBCW_SERVER_SHUTDOWN_TIMEOUT"`
}

// APIConfig describes how to reach the remote book club REST API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"DBCW_API_URL"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"DBCW_API_TIMEOUT"` // 0 means no per-call deadline
	UserAgent string        `yaml:"user_agent" envconfig:"DBCW_API_USER_AGENT"`
}

type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name" envconfig:"DBCW_SESSION_COOKIE_NAME"`
	CookieSecure  bool          `yaml:"cookie_secure" envconfig:"DBCW_SESSION_COOKIE_SECURE"`
	ResolveWait   time.Duration `yaml:"resolve_wait" envconfig:"DBCW_SESSION_RESOLVE_WAIT"`
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"DBCW_SESSION_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"DBCW_SESSION_SWEEP_INTERVAL"`
	TokenBackend  string        `yaml:"token_backend" envconfig:"DBCW_SESSION_TOKEN_BACKEND"`
	TokenTTL      time.Duration `yaml:"token_ttl" envconfig:"DBCW_SESSION_TOKEN_TTL"`
}

type AuthConfig struct {
	Strategies     []string `yaml:"strategies" envconfig:"DBCW_AUTH_STRATEGIES"`
	Providers      []string `yaml:"providers" envconfig:"DBCW_AUTH_PROVIDERS"`
	ProviderClient string   `yaml:"provider_client_id" envconfig:"DBCW_AUTH_PROVIDER_CLIENT_ID"`
	FormsRate      float64  `yaml:"forms_rate" envconfig:"DBCW_AUTH_FORMS_RATE"`
	FormsBurst     int      `yaml:"forms_burst" envconfig:"DBCW_AUTH_FORMS_BURST"`

	// Key the forms throttle on X-Real-IP and X-Forwarded-For. Only enable behind a trusted proxy.
	FormsTrustProxy bool `yaml:"forms_trust_proxy" envconfig:"DBCW_AUTH_FORMS_TRUST_PROXY"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"DBCW_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"DBCW_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"DBCW_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"DBCW_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"DBCW_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"DBCW_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"DBCW_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"DBCW_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"DBCW_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"DBCW_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"DBCW_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"DBCW_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"DBCW_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if len(config.API.BaseURL) == 0 {
		config.API.BaseURL = DefaultAPIBaseURL
	}
	if u, err := url.Parse(config.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", config.API.BaseURL)
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if len(config.Session.CookieName) == 0 {
		config.Session.CookieName = DefaultCookieName
	}
	if config.Session.ResolveWait <= 0 {
		config.Session.ResolveWait = 2 * time.Second
	}
	if config.Session.IdleTTL <= 0 {
		config.Session.IdleTTL = 30 * time.Minute
	}
	if config.Session.SweepInterval <= 0 {
		config.Session.SweepInterval = time.Minute
	}

	switch config.Session.TokenBackend {
	case "":
		config.Session.TokenBackend = TokenBackendBoltDB
	case TokenBackendBoltDB:
	case TokenBackendRedis:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	default:
		return fmt.Errorf("unknown token backend %q", config.Session.TokenBackend)
	}

	if config.Session.TokenBackend == TokenBackendBoltDB && len(config.BoltDB.FilePath) == 0 {
		return errors.New("make sure to set valid boltdb file path in configuration file")
	}

	if len(config.Auth.Strategies) == 0 {
		config.Auth.Strategies = []string{PasswordStrategy}
	}
	if config.Auth.FormsRate <= 0 {
		config.Auth.FormsRate = 1
	}
	if config.Auth.FormsBurst <= 0 {
		config.Auth.FormsBurst = 5
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load("./config.env")
	if err != nil {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `DBCW`.
	err = LoadConfigEnvs("DBCW", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
