package fo

import (
	"flag"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
)

// Config defines the missions the FO requests.
type Config struct {
	Callsign string `toml:"-"`
	FDC      string `toml:"fdc"`
	// ResponseAddr is advertised in the WarnOrder, defaults to the
	// local address of the link.
	ResponseAddr string `toml:"response_addr"`

	MissionType fofdc.MissionType `toml:"mission_type"`
	Target      fofdc.Grid        `toml:"target"`
	DangerClose bool              `toml:"danger_close"`
	Ammunition  fofdc.Ammunition  `toml:"ammunition"`

	RequestDelay  time.Duration `toml:"request_delay"`
	RetryInterval time.Duration `toml:"retry_interval"`
	// MaxMissions stops requesting after that many missions, 0 for no limit.
	MaxMissions int `toml:"max_missions"`
}

var defaultConfig = Config{
	Callsign:      "FO",
	FDC:           "FDC",
	MissionType:   fofdc.FireForEffect,
	Target:        fofdc.Grid{Lateral: 321, Longitudinal: 654},
	Ammunition:    fofdc.HighExplosive,
	RequestDelay:  5 * time.Second,
	RetryInterval: 2 * time.Second,
}

type gridValue struct {
	grid *fofdc.Grid
}

func (v gridValue) String() string {
	if v.grid == nil {
		return ""
	}
	return fmt.Sprintf("%d,%d", v.grid.Lateral, v.grid.Longitudinal)
}

func (v gridValue) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return fmt.Errorf("expect lateral,longitudinal: %q", s)
	}
	var coords [2]uint32
	for i, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return err
		}
		coords[i] = uint32(n)
	}
	v.grid.Lateral, v.grid.Longitudinal = coords[0], coords[1]
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.FDC, "fdc", defaultConfig.FDC, "Callsign of the FDC")
	flag.TextVar(&defaultConfig.MissionType, "mission-type", defaultConfig.MissionType, "adjust_fire or fire_for_effect")
	flag.Var(gridValue{&defaultConfig.Target}, "target", "Target grid as lateral,longitudinal")
	flag.BoolVar(&defaultConfig.DangerClose, "danger-close", defaultConfig.DangerClose, "Request danger close")
	flag.DurationVar(&defaultConfig.RequestDelay, "request-delay", defaultConfig.RequestDelay, "Delay before each request for fire")
	flag.DurationVar(&defaultConfig.RetryInterval, "retry-interval", defaultConfig.RetryInterval, "Request retransmit interval, 0 disables")
	flag.IntVar(&defaultConfig.MaxMissions, "missions", defaultConfig.MaxMissions, "Number of missions, 0 for no limit")
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

// WarnOrder builds the WarnOrder of a request for fire.
func (c *Config) WarnOrder() (fofdc.WarnOrder, error) {
	var addr netip.AddrPort
	if c.ResponseAddr != "" {
		var err error
		if addr, err = netip.ParseAddrPort(c.ResponseAddr); err != nil {
			return fofdc.WarnOrder{}, fmt.Errorf("response address: %w", err)
		}
	}
	ammo := c.Ammunition
	return fofdc.WarnOrder{
		Src:            c.Callsign,
		Receiver:       c.FDC,
		ResponseAddr:   addr,
		MissionType:    c.MissionType,
		TargetLocation: fofdc.GridLocation(c.Target.Lateral, c.Target.Longitudinal),
		DangerClose:    c.DangerClose,
		Ammunition:     &ammo,
	}, nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if _, err := c.WarnOrder(); err != nil {
		return err
	}
	if c.RequestDelay < 0 || c.RetryInterval < 0 {
		return fmt.Errorf("negative delay")
	}
	if c.MaxMissions < 0 {
		return fmt.Errorf("negative mission count: %d", c.MaxMissions)
	}
	return nil
}
