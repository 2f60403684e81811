// Package env sets up the environment of a simulator node: its link to
// the peer, configuration and telemetry.
package env

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
)

// Transports of the FO-FDC link.
const (
	TransportUDP       = "udp"
	TransportWebSocket = "ws"
	TransportTCP       = "tcp"
)

// Default link addresses of the roles.
const (
	DefaultFOAddr  = "127.0.0.1:49152"
	DefaultFDCAddr = "127.0.0.1:49153"
)

// Config provides common options to setup a node.
type Config struct {
	Role     fofdc.Role `toml:"-"`
	Callsign string     `toml:"callsign"`
	NodeID   string     `toml:"node_id"`

	// Transport is one of udp, ws and tcp. With ws and tcp the FDC
	// listens on LocalAddr and the FO connects to PeerAddr.
	Transport string `toml:"transport"`
	LocalAddr string `toml:"local_addr"`
	PeerAddr  string `toml:"peer_addr"`

	// MQTTBrokerURL enables telemetry when set.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `toml:"mqtt_url"`

	// File is the optional TOML config file.
	File string `toml:"-"`
}

var defaultConfig = Config{
	Transport: TransportUDP,
}

func init() {
	vars := map[string]*string{
		"CFF_CALLSIGN":   &defaultConfig.Callsign,
		"CFF_NODE_ID":    &defaultConfig.NodeID,
		"CFF_TRANSPORT":  &defaultConfig.Transport,
		"CFF_LOCAL_ADDR": &defaultConfig.LocalAddr,
		"CFF_PEER_ADDR":  &defaultConfig.PeerAddr,
		"CFF_MQTT_URL":   &defaultConfig.MQTTBrokerURL,
		"CFF_CONFIG":     &defaultConfig.File,
	}
	for name, p := range vars {
		if val := os.Getenv(name); val != "" {
			*p = val
		}
	}
}

// SetRole should be called in init of a node binary before SetupFlags.
// It fills the role specific defaults not set by environment variables.
func SetRole(role fofdc.Role) {
	defaultConfig.setRole(role)
}

func (c *Config) setRole(role fofdc.Role) {
	c.Role = role
	local, peer := DefaultFOAddr, DefaultFDCAddr
	if role == fofdc.RoleFDC {
		local, peer = peer, local
	}
	setDefault(&c.Callsign, role.String())
	setDefault(&c.LocalAddr, local)
	setDefault(&c.PeerAddr, peer)
	if c.NodeID == "" {
		c.NodeID = DefaultNodeID(strings.ToLower(role.String()))
	}
}

func setDefault(p *string, val string) {
	if *p == "" {
		*p = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Callsign, "callsign", defaultConfig.Callsign, "Callsign of this node")
	flag.StringVar(&defaultConfig.NodeID, "id", defaultConfig.NodeID, "Node ID used in telemetry")
	flag.StringVar(&defaultConfig.Transport, "transport", defaultConfig.Transport, "Link transport: udp, ws or tcp")
	flag.StringVar(&defaultConfig.LocalAddr, "local", defaultConfig.LocalAddr, "Local link address")
	flag.StringVar(&defaultConfig.PeerAddr, "peer", defaultConfig.PeerAddr, "Peer link address")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry")
	flag.StringVar(&defaultConfig.File, "config", defaultConfig.File, "TOML config file")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportUDP, TransportWebSocket, TransportTCP:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	listens, dials := c.Transport == TransportUDP || c.Role == fofdc.RoleFDC,
		c.Transport == TransportUDP || c.Role == fofdc.RoleFO
	if listens && c.LocalAddr == "" {
		return fmt.Errorf("local address required")
	}
	if dials && c.PeerAddr == "" {
		return fmt.Errorf("peer address required")
	}
	return nil
}

// LoadFile decodes the sections of a TOML file into the values of sections,
// keyed by table name, and applies the command line flags again so that
// explicitly set flags win over the file. Unknown tables and keys are errors.
func LoadFile(path string, sections map[string]interface{}) error {
	return loadFile(flag.CommandLine, path, sections)
}

func loadFile(fs *flag.FlagSet, path string, sections map[string]interface{}) error {
	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	var tables map[string]toml.Primitive
	md, err := toml.DecodeFile(path, &tables)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	for name, prim := range tables {
		v, ok := sections[name]
		if !ok {
			return fmt.Errorf("config %s: unknown section [%s]", path, name)
		}
		if err = md.PrimitiveDecode(prim, v); err != nil {
			return fmt.Errorf("config %s: [%s]: %w", path, name, err)
		}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	for name, val := range set {
		if err = fs.Set(name, val); err != nil {
			return fmt.Errorf("config %s: flag -%s: %w", path, name, err)
		}
	}
	return nil
}

// Load loads the default config file, if any, with the [link] section
// decoded into the default Config.
func Load(sections map[string]interface{}) error {
	if defaultConfig.File == "" {
		return nil
	}
	all := map[string]interface{}{"link": &defaultConfig}
	for name, v := range sections {
		all[name] = v
	}
	return LoadFile(defaultConfig.File, all)
}
