// Package config holds the tunable settings of a reconciliation run.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration. Zero-valued fields in a YAML file
// keep their defaults.
type Config struct {
	Matching      Matching      `yaml:"matching"`
	Notifications Notifications `yaml:"notifications"`
	Consumption   Consumption   `yaml:"consumption"`
	Input         Input         `yaml:"input"`
	LogLevel      string        `yaml:"log_level"`
}

// Matching controls how card events are paired with telematics events.
//
// MatchWindow bounds the forward match; OrphanWindow bounds the reverse scan
// that reports telematics refuels without a card purchase. The two are
// independent settings.
type Matching struct {
	MatchWindow       time.Duration `yaml:"match_window"`
	OrphanWindow      time.Duration `yaml:"orphan_window"`
	QuantityTolerance float64       `yaml:"quantity_tolerance"`
}

type Notifications struct {
	Drains         bool    `yaml:"drains"`
	DrainThreshold float64 `yaml:"drain_threshold_liters"`
}

type Consumption struct {
	DecimalPlaces int32   `yaml:"decimal_places"`
	Min           float64 `yaml:"min"`
	Max           float64 `yaml:"max"`
}

// Input describes the CSV exports.
type Input struct {
	Delimiter    string   `yaml:"delimiter"`
	Sentinel     string   `yaml:"sentinel"`
	Timezone     string   `yaml:"timezone"`
	FuelKeywords []string `yaml:"fuel_keywords"`

	Refuels Sheet  `yaml:"refuels"`
	Drains  Sheet  `yaml:"drains"`
	Roster  Roster `yaml:"roster"`
}

// Sheet names the columns of one telematics sheet.
type Sheet struct {
	Grouping string `yaml:"grouping"`
	Time     string `yaml:"time"`
	Quantity string `yaml:"quantity"`
	Odometer string `yaml:"odometer"`
}

type Roster struct {
	Vehicle    string `yaml:"vehicle"`
	CardPrefix string `yaml:"card_prefix"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Matching: Matching{
			MatchWindow:       2 * time.Hour,
			OrphanWindow:      time.Hour,
			QuantityTolerance: 0.10,
		},
		Notifications: Notifications{
			Drains:         true,
			DrainThreshold: 20,
		},
		Consumption: Consumption{
			DecimalPlaces: 2,
			Min:           5,
			Max:           100,
		},
		Input: Input{
			Delimiter:    ";",
			Sentinel:     "-----",
			Timezone:     "UTC",
			FuelKeywords: []string{"дизель", "бензин", "топливо", "diesel", "gasoline", "petrol", "fuel"},
			Refuels: Sheet{
				Grouping: "Группировка",
				Time:     "Время",
				Quantity: "Заправлено",
				Odometer: "Пробег",
			},
			Drains: Sheet{
				Grouping: "Группировка",
				Time:     "Время",
				Quantity: "Слито",
				Odometer: "Пробег",
			},
			Roster: Roster{
				Vehicle:    "номер машины",
				CardPrefix: "топливна карта",
			},
		},
		LogLevel: "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the matcher cannot work with.
func (c *Config) Validate() error {
	var errs error
	if c.Matching.MatchWindow <= 0 {
		errs = errors.Join(errs, errors.New("config: matching.match_window must be positive"))
	}
	if c.Matching.OrphanWindow <= 0 {
		errs = errors.Join(errs, errors.New("config: matching.orphan_window must be positive"))
	}
	if c.Matching.QuantityTolerance <= 0 {
		errs = errors.Join(errs, errors.New("config: matching.quantity_tolerance must be positive"))
	}
	if c.Consumption.DecimalPlaces < 0 {
		errs = errors.Join(errs, errors.New("config: consumption.decimal_places must not be negative"))
	}
	if len([]rune(c.Input.Delimiter)) != 1 {
		errs = errors.Join(errs, fmt.Errorf("config: input.delimiter must be a single character, got %q", c.Input.Delimiter))
	}
	if _, err := time.LoadLocation(c.Input.Timezone); err != nil {
		errs = errors.Join(errs, fmt.Errorf("config: input.timezone: %w", err))
	}
	return errs
}

// Location returns the time zone exports are recorded in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Input.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Comma returns the CSV field separator.
func (c *Config) Comma() rune {
	if r := []rune(c.Input.Delimiter); len(r) > 0 {
		return r[0]
	}
	return ';'
}
