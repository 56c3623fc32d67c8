package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del tracker.
type Config struct {
	Sizing    SizingConfig     `yaml:"sizing"`
	Watchlist []WatchlistEntry `yaml:"watchlist"`
	API       APIConfig        `yaml:"api"`
	Storage   StorageConfig    `yaml:"storage"`
	Server    ServerConfig     `yaml:"server"`
	GDPR      GDPRConfig       `yaml:"gdpr"`
	Log       LogConfig        `yaml:"log"`
}

// SizingConfig controla el cálculo Kelly del portfolio.
type SizingConfig struct {
	BankrollUSDC       float64 `yaml:"bankroll_usdc"`
	FractionMultiplier float64 `yaml:"fraction_multiplier"` // 0.5 = half-Kelly
	MaxPositionSize    float64 `yaml:"max_position_size"`   // cap por mercado (fracción del bankroll)
	IntervalSeconds    int     `yaml:"interval_seconds"`    // intervalo del loop del advisor
}

// WatchlistEntry es un mercado seguido con la probabilidad estimada del usuario.
// La probabilidad puede venir en 0-1 o 0-100.
type WatchlistEntry struct {
	ConditionID          string  `yaml:"condition_id"`
	EstimatedProbability float64 `yaml:"estimated_probability"`
}

// APIConfig contiene los base URLs de las APIs externas.
type APIConfig struct {
	CLOBBase   string `yaml:"clob_base"`
	GammaBase  string `yaml:"gamma_base"`
	AttestBase string `yaml:"attest_base"` // servicio de attestations (revocación on-chain)
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// ServerConfig controla el API HTTP.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin"` // origin del front (ej. http://localhost:3000)
}

// GDPRConfig controla el worker de borrado.
type GDPRConfig struct {
	RevocationsPerSecond   float64 `yaml:"revocations_per_second"` // ritmo máximo de revocación on-chain
	ProcessIntervalSeconds int     `yaml:"process_interval_seconds"`
	DryRunRevocations      bool    `yaml:"dry_run_revocations"` // true = no llama al servicio de attestations
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// AdviceInterval devuelve el intervalo del loop del advisor como time.Duration.
func (c *Config) AdviceInterval() time.Duration {
	return time.Duration(c.Sizing.IntervalSeconds) * time.Second
}

// ProcessInterval devuelve el intervalo del worker GDPR como time.Duration.
func (c *Config) ProcessInterval() time.Duration {
	return time.Duration(c.GDPR.ProcessIntervalSeconds) * time.Second
}

// WatchedConditionIDs extrae los condition_ids de la watchlist.
func (c *Config) WatchedConditionIDs() []string {
	ids := make([]string, 0, len(c.Watchlist))
	for _, w := range c.Watchlist {
		if w.ConditionID != "" {
			ids = append(ids, w.ConditionID)
		}
	}
	return ids
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Sizing.BankrollUSDC <= 0 {
		cfg.Sizing.BankrollUSDC = 1000
	}
	if cfg.Sizing.FractionMultiplier <= 0 {
		cfg.Sizing.FractionMultiplier = 0.5 // half-Kelly por defecto
	}
	if cfg.Sizing.MaxPositionSize <= 0 || cfg.Sizing.MaxPositionSize > 1 {
		cfg.Sizing.MaxPositionSize = 0.25
	}
	if cfg.Sizing.IntervalSeconds <= 0 {
		cfg.Sizing.IntervalSeconds = 60
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "foliotrack.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.GDPR.RevocationsPerSecond <= 0 {
		// Ritmo conservador: la revocación espera confirmación on-chain
		cfg.GDPR.RevocationsPerSecond = 0.5
	}
	if cfg.GDPR.ProcessIntervalSeconds <= 0 {
		cfg.GDPR.ProcessIntervalSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
