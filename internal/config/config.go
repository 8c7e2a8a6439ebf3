// Package config holds the YAML configuration shared by the shardfec
// sender, receiver and simulator.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/shardfec/shardfec/fec"
)

// Loss models accepted in Loss.Model.
const (
	LossNone      = "none"
	LossBernoulli = "bernoulli"
	LossGilbert   = "gilbert"
)

// Loss configures simulated packet loss.
type Loss struct {
	Model string  `yaml:"model"`
	Rate  float64 `yaml:"rate"`
	// BurstEnter and BurstExit are the good->bad and bad->good transition
	// probabilities of the Gilbert-Elliott model.
	BurstEnter float64 `yaml:"burst_enter"`
	BurstExit  float64 `yaml:"burst_exit"`
}

type Config struct {
	Listen      string        `yaml:"listen"`
	Addr        string        `yaml:"addr"`
	ALPN        string        `yaml:"alpn"`
	InsecureTLS bool          `yaml:"insecure_tls"`
	Redundancy  int           `yaml:"redundancy"`
	KeepAlive   time.Duration `yaml:"keepalive"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Pace        time.Duration `yaml:"pace"`
	Loss        Loss          `yaml:"loss"`
	MetricsAddr string        `yaml:"metrics_addr"`
	LogLevel    string        `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Listen:      ":9944",
		Addr:        "127.0.0.1:9944",
		ALPN:        "shardfec",
		InsecureTLS: true,
		Redundancy:  5,
		KeepAlive:   2 * time.Second,
		IdleTimeout: 30 * time.Second,
		Loss:        Loss{Model: LossNone},
		LogLevel:    "info",
	}
}

// Load reads a YAML file on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Redundancy < 0 || c.Redundancy > fec.MaxRedundancy {
		return errors.Errorf("redundancy %d out of range [0, %d]", c.Redundancy, fec.MaxRedundancy)
	}
	if c.ALPN == "" {
		return errors.New("alpn must not be empty")
	}
	if c.KeepAlive < 0 || c.IdleTimeout < 0 || c.Pace < 0 {
		return errors.New("durations must not be negative")
	}
	switch c.Loss.Model {
	case "", LossNone:
	case LossBernoulli:
		if c.Loss.Rate < 0 || c.Loss.Rate > 1 {
			return errors.Errorf("loss rate %v out of range [0, 1]", c.Loss.Rate)
		}
	case LossGilbert:
		for _, p := range []float64{c.Loss.Rate, c.Loss.BurstEnter, c.Loss.BurstExit} {
			if p < 0 || p > 1 {
				return errors.Errorf("gilbert probability %v out of range [0, 1]", p)
			}
		}
	default:
		return errors.Errorf("unknown loss model %q", c.Loss.Model)
	}
	return nil
}
