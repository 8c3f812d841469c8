// Package config loads the gateway/reflector INI-style configuration
// file described in spec.md §6 via viper, exposing a parsed struct to
// the core rather than a parser (config loading is declared external).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level parsed configuration for the Gateway and
// Reflector executables. Not every section applies to every binary;
// unused sections are simply left at their defaults.
type Config struct {
	General        GeneralConfig        `mapstructure:"general"`
	Info           InfoConfig           `mapstructure:"info"`
	Log            LogConfig            `mapstructure:"log"`
	APRS           APRSConfig           `mapstructure:"aprs"`
	YSFNetwork     YSFNetworkConfig     `mapstructure:"ysf_network"`
	FCSNetwork     FCSNetworkConfig     `mapstructure:"fcs_network"`
	IMRSNetwork    IMRSNetworkConfig    `mapstructure:"imrs_network"`
	DGIds          []DGIdConfig         `mapstructure:"dgids"`
	GPSD           GPSDConfig           `mapstructure:"gpsd"`
	Network        NetworkConfig        `mapstructure:"network"`
	RemoteCommands RemoteCommandsConfig `mapstructure:"remote_commands"`
	BlockList      BlockListConfig      `mapstructure:"block_list"`
	Reflector      ReflectorConfig      `mapstructure:"reflector"`
	Status         StatusConfig         `mapstructure:"status"`
	Parrot         ParrotConfig         `mapstructure:"parrot"`
}

// ReflectorConfig configures the standalone reflector executable.
type ReflectorConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
}

// StatusConfig is the HTTP/WebSocket status surface, an ambient
// observability component wired on top of the reflector.
type StatusConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
}

// ParrotConfig configures the parrot DG-ID's record/replay timeout.
type ParrotConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// GeneralConfig is [General]: daemon mode, callsign identity shared by
// every link.
type GeneralConfig struct {
	Callsign string `mapstructure:"callsign"`
	Suffix   string `mapstructure:"suffix"`
	Daemon   bool   `mapstructure:"daemon"`
}

// InfoConfig is [Info]: station metadata echoed in YSFI/Wires-X replies.
type InfoConfig struct {
	RXFrequency uint32  `mapstructure:"rx_frequency"`
	TXFrequency uint32  `mapstructure:"tx_frequency"`
	Power       uint32  `mapstructure:"power"`
	Latitude    float64 `mapstructure:"latitude"`
	Longitude   float64 `mapstructure:"longitude"`
	Height      int32   `mapstructure:"height"`
	Location    string  `mapstructure:"location"`
	Description string  `mapstructure:"description"`
	URL         string  `mapstructure:"url"`
}

// LogConfig is [Log], consumed by internal/logging.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// APRSConfig is [APRS], out of core scope but carried through per the
// ambient-stack requirement (spec.md §1 lists APRS as an external
// collaborator, not a feature to drop).
type APRSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Server      string `mapstructure:"server"`
	Port        uint32 `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	Callsign    string `mapstructure:"callsign"`
	Description string `mapstructure:"description"`
	Refresh     uint32 `mapstructure:"refresh"`
}

// YSFNetworkConfig is [YSF Network].
type YSFNetworkConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Static       bool   `mapstructure:"static"`
	DstAddress   string `mapstructure:"dst_address"`
	DstPort      int    `mapstructure:"dst_port"`
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
	EnableWiresX bool   `mapstructure:"enable_wiresx"`
	HangTimeMS   int    `mapstructure:"hang_time_ms"`
	HostsFile    string `mapstructure:"hosts_file"`
}

// FCSNetworkConfig is [FCS Network].
type FCSNetworkConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Static       bool   `mapstructure:"static"`
	Designator   string `mapstructure:"designator"` // 8-char room, e.g. "FCS00201"
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
	HangTimeMS   int    `mapstructure:"hang_time_ms"`
	RoomsFile    string `mapstructure:"rooms_file"`
	ID           uint32 `mapstructure:"id"`
}

// IMRSNetworkConfig is [IMRS Network].
type IMRSNetworkConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
}

// DGIdConfig is one entry of the dgids list, a single switch slot.
// Load reads slots only from that list; INI [DGId=N] sections are not
// mapped onto it.
type DGIdConfig struct {
	DGId           uint8  `mapstructure:"dgid"`
	Kind           string `mapstructure:"kind"` // "ysf", "fcs", "imrs", "gateway", "parrot"
	Static         bool   `mapstructure:"static"`
	RFHangTimeMS   int    `mapstructure:"rf_hang_time_ms"`
	NetHangTimeMS  int    `mapstructure:"net_hang_time_ms"`
	AllowedModes   []string `mapstructure:"allowed_modes"`
	NetDGId        uint8  `mapstructure:"net_dgid"`
	Address        string `mapstructure:"address"`
	Port           int    `mapstructure:"port"`
}

// GPSDConfig is [GPSD], out of core scope, carried through.
type GPSDConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// NetworkConfig is [Network]: the local modem-facing socket. RptAddress/
// RptPort name the modem's own statically configured listening address,
// the destination writeRF sends to — the original gateway never
// handshakes with the modem, it just writes to a fixed address read from
// config (original_source/YSFGateway/YSFGateway.cpp's
// rptNetwork.setDestination, fed by Conf::getRptAddress()/getRptPort()).
type NetworkConfig struct {
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
	RptAddress   string `mapstructure:"rpt_address"`
	RptPort      int    `mapstructure:"rpt_port"`
	Debug        bool   `mapstructure:"debug"`
}

// RemoteCommandsConfig is [Remote Commands].
type RemoteCommandsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LocalAddress string `mapstructure:"local_address"`
	LocalPort    int    `mapstructure:"local_port"`
}

// BlockListConfig is [Block List].
type BlockListConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	File         string        `mapstructure:"file"`
	ReloadPeriod time.Duration `mapstructure:"reload_period"`
}

// Load reads configFile (any format viper understands: ini, yaml, toml)
// and unmarshals it into Config, with defaults for every key per
// spec.md §6 ("every key is optional with a compiled-in default").
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ysf-gateway")
		v.SetConfigType("ini")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ysf-gateway")
	}

	v.SetEnvPrefix("YSFGW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.callsign", "N0CALL")
	v.SetDefault("general.suffix", "ND")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size", 28)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	v.SetDefault("ysf_network.dst_port", 42000)
	v.SetDefault("ysf_network.local_port", 42013)
	v.SetDefault("ysf_network.hang_time_ms", 5000)
	v.SetDefault("ysf_network.enable_wiresx", true)

	v.SetDefault("fcs_network.local_port", 42014)
	v.SetDefault("fcs_network.hang_time_ms", 5000)
	v.SetDefault("fcs_network.id", 0)

	v.SetDefault("imrs_network.local_port", 21110)

	v.SetDefault("network.local_address", "127.0.0.1")
	v.SetDefault("network.local_port", 42012)
	v.SetDefault("network.rpt_address", "127.0.0.1")
	v.SetDefault("network.rpt_port", 3000)

	v.SetDefault("remote_commands.local_port", 42011)

	v.SetDefault("block_list.reload_period", "60s")

	v.SetDefault("reflector.id", "00000")
	v.SetDefault("reflector.name", "YSF-GATEWAY")
	v.SetDefault("reflector.local_port", 42000)

	v.SetDefault("status.local_address", "127.0.0.1")
	v.SetDefault("status.local_port", 8080)

	v.SetDefault("parrot.timeout_seconds", 30)
}
