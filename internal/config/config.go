package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// GovernanceMode controls how dependency conflicts affect project state.
type GovernanceMode string

const (
	ModeStrict     GovernanceMode = "strict"
	ModeAdaptive   GovernanceMode = "adaptive"
	ModePlayground GovernanceMode = "playground"
)

// SecureGatewayPolicy names one of the three routing policies.
type SecureGatewayPolicy string

const (
	PolicyLocalFirst          SecureGatewayPolicy = "default_local_first"
	PolicyEnterpriseResidency SecureGatewayPolicy = "enterprise_residency"
	PolicyComplianceLocalOnly SecureGatewayPolicy = "compliance_local_only"
)

// ServerConfig controls the agent-facing HTTP API.
type ServerConfig struct {
	Host string `json:"host" env:"SERVER_HOST"`
	Port int    `json:"port" env:"SERVER_PORT"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver   string `json:"driver" env:"STORAGE_DRIVER"` // "memory" or "postgres"
	DSN      string `json:"dsn" env:"STORAGE_DSN"`
	DataDir  string `json:"data_dir" env:"STORAGE_DATA_DIR"`
	MaxConns int    `json:"max_conns" env:"STORAGE_MAX_CONNS"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// GovernanceConfig controls PSMP conflict-severity semantics.
type GovernanceConfig struct {
	Mode GovernanceMode `json:"governance_mode" env:"GOVERNANCE_MODE"`
}

// ComplianceConfig controls audit behavior.
type ComplianceConfig struct {
	Organization   string `json:"organization" env:"ORGANIZATION"`
	StrictAudit    bool   `json:"strict_audit" env:"STRICT_AUDIT"`
	HashChain      bool   `json:"hash_chain" env:"AUDIT_HASH_CHAIN"`
	QueueHighWater int    `json:"queue_high_water" env:"AUDIT_QUEUE_HIGH_WATER"`
}

// SecureGatewayConfig controls task classification and provider routing.
type SecureGatewayConfig struct {
	Policy  SecureGatewayPolicy `json:"secure_gateway_policy" env:"SECURE_GATEWAY_POLICY"`
	Offline bool                `json:"offline" env:"GOVERNANCE_OFFLINE"`
}

// ProviderConfig describes one LLM provider entry.
type ProviderConfig struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"` // "local_runtime" or "cloud_aggregator"
	Priority     int    `json:"priority"`
	Endpoint     string `json:"endpoint"`
	DefaultModel string `json:"default_model"`
}

// LLMConfig controls the LLM gateway.
type LLMConfig struct {
	Providers                  []ProviderConfig  `json:"providers"`
	ModelMappings              map[string]string `json:"model_mappings"`
	HealthCheckIntervalSeconds int               `json:"health_check_interval_seconds" env:"LLM_HEALTH_CHECK_INTERVAL_SECONDS"`
	RequestTimeoutSeconds      int               `json:"request_timeout_seconds" env:"LLM_REQUEST_TIMEOUT_SECONDS"`
	MaxRetries                 int               `json:"max_retries" env:"LLM_MAX_RETRIES"`
	HealthCacheTTLSeconds      int               `json:"health_cache_ttl_seconds" env:"LLM_HEALTH_CACHE_TTL_SECONDS"`
	UnhealthyThreshold         int               `json:"unhealthy_threshold" env:"LLM_UNHEALTHY_THRESHOLD"`
	RedisAddr                 string             `json:"redis_addr" env:"LLM_REDIS_ADDR"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `json:"server"`
	Storage       StorageConfig       `json:"storage"`
	Logging       LoggingConfig       `json:"logging"`
	Governance    GovernanceConfig    `json:"governance"`
	Compliance    ComplianceConfig    `json:"compliance"`
	SecureGateway SecureGatewayConfig `json:"secure_gateway"`
	LLM           LLMConfig           `json:"llm"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver:   "memory",
			DataDir:  "data",
			MaxConns: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "governance-core",
		},
		Governance: GovernanceConfig{
			Mode: ModeAdaptive,
		},
		Compliance: ComplianceConfig{
			Organization:   "default",
			QueueHighWater: 10000,
		},
		SecureGateway: SecureGatewayConfig{
			Policy: PolicyLocalFirst,
		},
		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{Name: "local", Kind: "local_runtime", Priority: 1, DefaultModel: "local-default"},
				{Name: "cloud", Kind: "cloud_aggregator", Priority: 2, DefaultModel: "cloud-default"},
			},
			ModelMappings:              map[string]string{},
			HealthCheckIntervalSeconds: 60,
			RequestTimeoutSeconds:      30,
			MaxRetries:                 2,
			HealthCacheTTLSeconds:      60,
			UnhealthyThreshold:         3,
		},
	}
}

// Load loads configuration from file (if present) and environment variables.
// envPrefix, when non-empty, is prepended to every recognized variable name
// (e.g. "ACME" matches "ACME_GOVERNANCE_MODE" in addition to the bare name).
func Load(envPrefix string) (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	restore := applyPrefix(envPrefix)
	defer restore()

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// applyPrefix temporarily mirrors every <PREFIX>_<VAR> environment variable
// onto its unprefixed name so envdecode's static `env:"..."` tags resolve
// regardless of the configured prefix. The returned func undoes the mirror.
func applyPrefix(prefix string) func() {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return func() {}
	}
	prefix = strings.ToUpper(prefix) + "_"
	var mirrored []string
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], prefix) {
			continue
		}
		unprefixed := strings.TrimPrefix(parts[0], prefix)
		if _, exists := os.LookupEnv(unprefixed); !exists {
			_ = os.Setenv(unprefixed, parts[1])
			mirrored = append(mirrored, unprefixed)
		}
	}
	return func() {
		for _, k := range mirrored {
			_ = os.Unsetenv(k)
		}
	}
}

// LoadFile reads configuration from a YAML file only (no env overrides);
// primarily used by tests.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	if c == nil {
		return
	}
	if c.SecureGateway.Offline {
		c.SecureGateway.Policy = PolicyComplianceLocalOnly
	}
	if c.Governance.Mode == "" {
		c.Governance.Mode = ModeAdaptive
	}
	if c.SecureGateway.Policy == "" {
		c.SecureGateway.Policy = PolicyLocalFirst
	}
	if c.Compliance.Organization == "" {
		c.Compliance.Organization = "default"
	}
}
