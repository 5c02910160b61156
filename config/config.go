package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de vegavis.
type Config struct {
	Scorer  ScorerConfig  `yaml:"scorer"`
	Model   ModelConfig   `yaml:"model"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ScorerConfig controla qué mercados se puntúan y cómo se construye el ladder.
type ScorerConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"`
	MarketIDs       []string `yaml:"market_ids"` // vacío = todos los activos
	Levels          int      `yaml:"levels"`
	StepFraction    float64  `yaml:"step_fraction"` // distancia entre niveles, fracción del touch
	Threshold       float64  `yaml:"threshold"`     // PoT mínima para el resumen compacto
}

// ModelConfig son los parámetros de red del modelo de probabilidad de trading.
type ModelConfig struct {
	MinProbabilityOfTrading float64 `yaml:"min_probability_of_trading"`
	TauScaling              float64 `yaml:"tau_scaling"`
}

// APIConfig contiene el endpoint del data node.
type APIConfig struct {
	DataNodeURL    string `yaml:"data_node_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig controla dónde se registran los ladders.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = desactivado
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

// Interval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scorer.IntervalSeconds) * time.Second
}

// Timeout devuelve el timeout HTTP del data node.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("VEGA_DATA_NODE_URL"); v != "" {
		cfg.API.DataNodeURL = v
	}
	if v := os.Getenv("VEGAVIS_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("VEGAVIS_MARKETS"); v != "" {
		cfg.Scorer.MarketIDs = SplitList(v)
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scorer.IntervalSeconds <= 0 {
		cfg.Scorer.IntervalSeconds = 30
	}
	if cfg.Scorer.Levels <= 0 {
		cfg.Scorer.Levels = 5
	}
	if cfg.Scorer.StepFraction <= 0 {
		cfg.Scorer.StepFraction = 0.005 // 50 bps por nivel
	}
	if cfg.Scorer.Threshold <= 0 {
		cfg.Scorer.Threshold = 0.25
	}
	if cfg.Model.MinProbabilityOfTrading <= 0 {
		cfg.Model.MinProbabilityOfTrading = 1e-8
	}
	if cfg.Model.TauScaling <= 0 {
		cfg.Model.TauScaling = 1.0
	}
	if cfg.API.DataNodeURL == "" {
		cfg.API.DataNodeURL = "https://vega-mainnet-data.commodum.io/api/v2"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "vegavis.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// SplitList parte una lista separada por comas, recortando espacios y
// descartando elementos vacíos.
func SplitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
