// Package appconfig loads gateway and node process configuration from
// an INI file via gopkg.in/ini.v1, the same library the example
// corpus's object dictionary parser uses to load EDS files. An OTA
// deployment has no object dictionary to parse, so this repurposes the
// library for the more ordinary job of process configuration: radio
// addressing, serial ports, timeouts, and the optional Redis/Prometheus
// endpoints.
package appconfig

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Radio holds the [radio] section: local/link addressing and timing.
type Radio struct {
	LocalAddress uint16        `ini:"local_address"`
	LossRate     float64       `ini:"loss_rate"`
	ReceiveWindow time.Duration `ini:"-"`
}

// Serial holds the [serial] section: the hostlink transport.
type Serial struct {
	Device string `ini:"device"`
	Baud   int    `ini:"baud"`
}

// Producer holds the [producer] section: retry policy for transactional sends.
type Producer struct {
	Retries      int           `ini:"-"`
	RetryBackoff time.Duration `ini:"-"`
}

// Metrics holds the optional [metrics] section.
type Metrics struct {
	Enabled bool   `ini:"enabled"`
	Listen  string `ini:"listen"`
}

// HTTP holds the optional [http] section for the status JSON endpoint.
type HTTP struct {
	Enabled bool   `ini:"enabled"`
	Listen  string `ini:"listen"`
}

// Redis holds the optional [redis] section.
type Redis struct {
	Enabled  bool   `ini:"enabled"`
	Addr     string `ini:"addr"`
	Password string `ini:"password"`
	DB       int    `ini:"db"`
	KeyFmt   string `ini:"key_format"`
}

// Config is a fully-loaded gateway or node process configuration.
type Config struct {
	Radio    Radio
	Serial   Serial
	Producer Producer
	Metrics  Metrics
	HTTP     HTTP
	Redis    Redis
}

// defaults mirrors the zero-config behavior a freshly-unpacked gateway
// should have: local radio link, no Redis, no metrics.
func defaults() Config {
	return Config{
		Radio: Radio{
			LocalAddress:  1,
			ReceiveWindow: 2 * time.Second,
		},
		Serial: Serial{
			Device: "/dev/ttyUSB0",
			Baud:   115200,
		},
		Producer: Producer{
			Retries:      5,
			RetryBackoff: 100 * time.Millisecond,
		},
	}
}

// Load reads path as an INI file and overlays it onto the defaults.
// Missing sections or keys keep their default value, so a minimal file
// containing only e.g. [radio]\nlocal_address=7 is valid.
func Load(path string) (Config, error) {
	cfg := defaults()

	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("appconfig: load %s: %w", path, err)
	}

	if s, err := f.GetSection("radio"); err == nil {
		if err := s.MapTo(&cfg.Radio); err != nil {
			return cfg, fmt.Errorf("appconfig: parse [radio]: %w", err)
		}
		if k, err := s.GetKey("receive_window_ms"); err == nil {
			ms, err := k.Int()
			if err != nil {
				return cfg, fmt.Errorf("appconfig: parse [radio] receive_window_ms: %w", err)
			}
			cfg.Radio.ReceiveWindow = time.Duration(ms) * time.Millisecond
		}
	}

	if s, err := f.GetSection("serial"); err == nil {
		if err := s.MapTo(&cfg.Serial); err != nil {
			return cfg, fmt.Errorf("appconfig: parse [serial]: %w", err)
		}
	}

	if s, err := f.GetSection("producer"); err == nil {
		if k, err := s.GetKey("retries"); err == nil {
			n, err := k.Int()
			if err != nil {
				return cfg, fmt.Errorf("appconfig: parse [producer] retries: %w", err)
			}
			cfg.Producer.Retries = n
		}
		if k, err := s.GetKey("retry_backoff_ms"); err == nil {
			ms, err := k.Int()
			if err != nil {
				return cfg, fmt.Errorf("appconfig: parse [producer] retry_backoff_ms: %w", err)
			}
			cfg.Producer.RetryBackoff = time.Duration(ms) * time.Millisecond
		}
	}

	if s, err := f.GetSection("metrics"); err == nil {
		if err := s.MapTo(&cfg.Metrics); err != nil {
			return cfg, fmt.Errorf("appconfig: parse [metrics]: %w", err)
		}
	}

	if s, err := f.GetSection("http"); err == nil {
		if err := s.MapTo(&cfg.HTTP); err != nil {
			return cfg, fmt.Errorf("appconfig: parse [http]: %w", err)
		}
	}

	if s, err := f.GetSection("redis"); err == nil {
		if err := s.MapTo(&cfg.Redis); err != nil {
			return cfg, fmt.Errorf("appconfig: parse [redis]: %w", err)
		}
	}

	return cfg, nil
}
