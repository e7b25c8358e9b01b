package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/agencydesk/internal/export"
	"github.com/mesh-intelligence/agencydesk/internal/paths"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "AGENCYDESK"
)

// Config keys.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyAPIURL         = "api_url"
	cfgKeyToken          = "token"
	cfgKeyDSN            = "dsn"
	cfgKeyTimeout        = "timeout"
	cfgKeyPageSize       = "page_size"
	cfgKeyPageSizes      = "page_sizes"
	cfgKeyConcurrency    = "concurrency"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogFormat      = "log.format"
	cfgKeyServerAddr     = "server.addr"
	cfgKeyServerToken    = "server.token"
	cfgKeyServerEmail    = "server.email"
	cfgKeyServerPassword = "server.password"
	cfgKeyS3Region       = "export.s3.region"
	cfgKeyS3Endpoint     = "export.s3.endpoint"
	cfgKeyS3AccessKey    = "export.s3.access_key_id"
	cfgKeyS3SecretKey    = "export.s3.secret_access_key"
	cfgKeyS3PathStyle    = "export.s3.path_style"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# agencydesk configuration

# Backend: sqlite, rest, postgres, or memory
backend: sqlite

# Data directory for the sqlite backend (optional; overridable by --data-dir)
# data_dir:

# REST backend
# api_url: http://localhost:3000/api
# token:

# Postgres backend
# dsn: postgres://localhost/agencydesk?sslmode=disable

timeout: 30s
page_size: 10
page_sizes:
  roles: 5

# single or per_action
concurrency: single

log:
  level: warn
  format: console

server:
  addr: 127.0.0.1:3000
  email: admin@agency.com
  password: changeme
`

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Environment variables prefixed AGENCYDESK_
// override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyTimeout, types.DefaultTimeout)
	v.SetDefault(cfgKeyPageSize, types.DefaultPageSize)
	v.SetDefault(cfgKeyConcurrency, types.ConcurrencySingle)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "console")
	v.SetDefault(cfgKeyServerAddr, "127.0.0.1:3000")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates config.yaml when it does not exist.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFileName)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}

// sessionConfig converts the viper values into a validated types.Config.
func sessionConfig(v *viper.Viper, dataDir string) (types.Config, error) {
	cfg := types.Config{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     dataDir,
		APIURL:      v.GetString(cfgKeyAPIURL),
		Token:       v.GetString(cfgKeyToken),
		DSN:         v.GetString(cfgKeyDSN),
		Timeout:     v.GetDuration(cfgKeyTimeout),
		PageSize:    v.GetInt(cfgKeyPageSize),
		Concurrency: v.GetString(cfgKeyConcurrency),
	}
	if sizes := v.GetStringMap(cfgKeyPageSizes); len(sizes) > 0 {
		cfg.PageSizes = make(map[string]int, len(sizes))
		for name := range sizes {
			cfg.PageSizes[name] = v.GetInt(cfgKeyPageSizes + "." + name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, userError(fmt.Errorf("invalid config: %w", err))
	}
	return cfg, nil
}

func s3Config(v *viper.Viper) export.S3Config {
	return export.S3Config{
		Region:          v.GetString(cfgKeyS3Region),
		Endpoint:        v.GetString(cfgKeyS3Endpoint),
		AccessKeyID:     v.GetString(cfgKeyS3AccessKey),
		SecretAccessKey: v.GetString(cfgKeyS3SecretKey),
		PathStyle:       v.GetBool(cfgKeyS3PathStyle),
	}
}
