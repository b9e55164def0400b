package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"twine-codec/story"
)

// Config configurazione completa dell'applicazione
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	App     story.AppInfo `yaml:"app" toml:"app"`
	Formats FormatsConfig `yaml:"formats" toml:"formats"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Logging Logging       `yaml:"logging" toml:"logging"`
}

// ServerConfig configurazione del server API
type ServerConfig struct {
	Port       int  `yaml:"port" toml:"port"`
	EnableCORS bool `yaml:"enable_cors" toml:"enable_cors"`
	Debug      bool `yaml:"debug" toml:"debug"`
}

// FormatsConfig dove cercare i formati e quale usare se la storia non ne indica uno
type FormatsConfig struct {
	Dir            string `yaml:"dir" toml:"dir"`
	Default        string `yaml:"default" toml:"default"`
	DefaultVersion string `yaml:"default_version" toml:"default_version"`
}

// OutputConfig cartella di lavoro per i file generati
type OutputConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// WatchConfig configurazione del file watcher
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
}

// Default restituisce la configurazione di base
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, EnableCORS: true},
		App:    story.AppInfo{Name: "Twine Codec", Version: "0.1.0"},
		Formats: FormatsConfig{
			Dir:            "story-formats",
			Default:        "Harlowe",
			DefaultVersion: "3.3.8",
		},
		Output:  OutputConfig{Dir: "./output"},
		Watch:   WatchConfig{Debounce: 500 * time.Millisecond},
		Logging: Logging{Level: "normal"},
	}
}

// Load legge il file di configurazione (YAML o TOML secondo l'estensione).
// Un file assente non è un errore: si usano i default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("errore lettura configurazione: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("formato di configurazione non supportato: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("errore parsing configurazione: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate controlla i valori che non hanno un default sensato
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("porta non valida: %d", c.Server.Port)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("debounce negativo: %s", c.Watch.Debounce)
	}
	switch c.Logging.Level {
	case "none", "normal", "debug":
	default:
		return fmt.Errorf("livello di log non valido: %q", c.Logging.Level)
	}
	return nil
}

// StoryOptions opzioni dei codec derivate dalla configurazione
func (c *Config) StoryOptions() story.Options {
	return story.Options{
		StoryFormat:        c.Formats.Default,
		StoryFormatVersion: c.Formats.DefaultVersion,
	}
}
