package fdc

import (
	"flag"
	"fmt"
	"time"

	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
)

// Config defines the mission the FDC plans and the timing of its fire
// sequence.
type Config struct {
	Callsign     string `toml:"-"`
	Observer     string `toml:"observer"`
	TargetNumber string `toml:"target_number"`
	Rounds       uint32 `toml:"rounds"`

	ShotCount           int           `toml:"shot_count"`
	FlightTime          time.Duration `toml:"flight_time"`
	ShotInterval        time.Duration `toml:"shot_interval"`
	SplashDelay         time.Duration `toml:"splash_delay"`
	RoundsCompleteDelay time.Duration `toml:"rounds_complete_delay"`
	DrainTimeout        time.Duration `toml:"drain_timeout"`
}

var defaultConfig = Config{
	Callsign:            "FDC",
	Observer:            "FO",
	TargetNumber:        "AN2001",
	Rounds:              4,
	ShotCount:           4,
	FlightTime:          13 * time.Second,
	ShotInterval:        time.Second,
	SplashDelay:         13 * time.Second,
	RoundsCompleteDelay: 4 * time.Second,
	DrainTimeout:        time.Minute,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Observer, "observer", defaultConfig.Observer, "Callsign of the observer")
	flag.StringVar(&defaultConfig.TargetNumber, "target-number", defaultConfig.TargetNumber, "Target number assigned to missions")
	flag.IntVar(&defaultConfig.ShotCount, "shots", defaultConfig.ShotCount, "Shots fired per mission")
	flag.DurationVar(&defaultConfig.FlightTime, "flight-time", defaultConfig.FlightTime, "Delay before the first shot")
	flag.DurationVar(&defaultConfig.ShotInterval, "shot-interval", defaultConfig.ShotInterval, "Delay between shots")
	flag.DurationVar(&defaultConfig.SplashDelay, "splash-delay", defaultConfig.SplashDelay, "Delay between the last shot and splash")
	flag.DurationVar(&defaultConfig.RoundsCompleteDelay, "rounds-complete-delay", defaultConfig.RoundsCompleteDelay, "Delay between splash and rounds complete")
	flag.DurationVar(&defaultConfig.DrainTimeout, "drain-timeout", defaultConfig.DrainTimeout, "Time allowed for a fire sequence to finish on shutdown")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Mto builds the Message to Observer for a mission.
func (c *Config) Mto() (fofdc.Mto, error) {
	tn, err := fofdc.NewTargetNumber(c.TargetNumber)
	if err != nil {
		return fofdc.Mto{}, err
	}
	return fofdc.Mto{
		Src:          c.Callsign,
		Receiver:     c.Observer,
		TargetNumber: tn,
		Ammunition:   fofdc.HighExplosive,
		Rounds:       c.Rounds,
	}, nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if _, err := c.Mto(); err != nil {
		return err
	}
	if c.ShotCount < 1 {
		return fmt.Errorf("shot count must be positive: %d", c.ShotCount)
	}
	for _, d := range []time.Duration{c.FlightTime, c.ShotInterval, c.SplashDelay, c.RoundsCompleteDelay, c.DrainTimeout} {
		if d < 0 {
			return fmt.Errorf("negative delay: %v", d)
		}
	}
	return nil
}
