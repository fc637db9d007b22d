// Package gateway wires the decode/reassemble/dispatch pipeline
// together: configuration loading, the capture-to-queue producer, and
// the queue-to-egress dispatch scheduler.
package gateway

import (
	"errors"
	"fmt"
	"net"

	"github.com/BurntSushi/toml"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/openpmu"
)

const (
	defaultNominalFrequency = 50
	defaultSiteLabel        = ""
)

// OutputChannel is one configured OpenPMU channel: which of the eight
// decoded sample slots it draws from, and how it should be labelled.
type OutputChannel struct {
	Name         string
	Phase        string
	Type         string // "V" or "I"
	InputChannel int    // index into sampleq.Buffer.Channels (0-7)
}

// Config is the validated, defaulted configuration for one gateway
// instance.
type Config struct {
	NominalFrequency uint32
	SampleRate       uint32
	Length           uint32 // window length in samples, derived from the two above
	Interface        string
	MACAddress       [6]byte
	Destination      *net.UDPAddr
	SiteLabel        string
	Channels         []OutputChannel
	MetricsAddr      string
}

// tomlConfig is the on-disk shape of the configuration file, decoded by
// github.com/BurntSushi/toml and then validated/defaulted into Config.
type tomlConfig struct {
	NominalFrequency uint32          `toml:"nominal_frequency"`
	SampleRate       uint32          `toml:"sample_rate"`
	Interface        string          `toml:"interface"`
	MACAddress       string          `toml:"mac_address"`
	Destination      string          `toml:"destination"`
	SiteLabel        string          `toml:"site_label"`
	MetricsAddr      string          `toml:"metrics_addr"`
	OutputChannel    []tomlChannel   `toml:"output_channel"`
}

type tomlChannel struct {
	Name         string `toml:"name"`
	Phase        string `toml:"phase"`
	Type         string `toml:"type"`
	InputChannel int    `toml:"input_channel"`
}

// LoadConfig reads and validates the TOML configuration file at path.
func LoadConfig(path string) (Config, error) {
	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return buildConfig(tc)
}

func buildConfig(tc tomlConfig) (Config, error) {
	cfg := Config{
		NominalFrequency: defaultNominalFrequency,
		SiteLabel:        defaultSiteLabel,
	}

	if tc.NominalFrequency != 0 {
		cfg.NominalFrequency = tc.NominalFrequency
	}

	if tc.SampleRate == 0 {
		return Config{}, errors.New("sample_rate is required")
	}
	cfg.SampleRate = tc.SampleRate

	if cfg.SampleRate%(2*cfg.NominalFrequency) != 0 {
		return Config{}, fmt.Errorf(
			"sample_rate (%d) must be an exact multiple of 2 * nominal_frequency (%d)",
			cfg.SampleRate, 2*cfg.NominalFrequency)
	}
	cfg.Length = cfg.SampleRate / (2 * cfg.NominalFrequency)

	if tc.Interface == "" {
		return Config{}, errors.New("interface is required")
	}
	cfg.Interface = tc.Interface

	mac, err := parseMACAddress(tc.MACAddress)
	if err != nil {
		return Config{}, fmt.Errorf("mac_address: %w", err)
	}
	cfg.MACAddress = mac

	if tc.Destination == "" {
		return Config{}, errors.New("destination is required")
	}
	dest, err := net.ResolveUDPAddr("udp", tc.Destination)
	if err != nil {
		return Config{}, fmt.Errorf("destination: %w", err)
	}
	cfg.Destination = dest

	cfg.SiteLabel = tc.SiteLabel
	cfg.MetricsAddr = tc.MetricsAddr

	if len(tc.OutputChannel) == 0 {
		cfg.Channels = defaultOutputChannels()
	} else {
		cfg.Channels = make([]OutputChannel, 0, len(tc.OutputChannel))
		for _, oc := range tc.OutputChannel {
			if oc.InputChannel < 0 || oc.InputChannel > 7 {
				return Config{}, fmt.Errorf("output_channel %q: input_channel must be 0-7", oc.Name)
			}
			if oc.Type != "V" && oc.Type != "I" {
				return Config{}, fmt.Errorf("output_channel %q: type must be \"V\" or \"I\"", oc.Name)
			}
			cfg.Channels = append(cfg.Channels, OutputChannel{
				Name: oc.Name, Phase: oc.Phase, Type: oc.Type, InputChannel: oc.InputChannel,
			})
		}
	}
	if len(cfg.Channels) != 6 {
		return Config{}, fmt.Errorf("exactly 6 output_channel entries are required, got %d", len(cfg.Channels))
	}

	return cfg, nil
}

// defaultOutputChannels mirrors openpmu.DefaultChannels's mapping
// (voltages A/B/C then currents A/B/C) expressed as gateway.OutputChannel
// values, so a config without an explicit output_channel list still
// produces the standard six-channel datagram.
func defaultOutputChannels() []OutputChannel {
	specs := openpmu.DefaultChannels("")
	out := make([]OutputChannel, len(specs))
	for i, s := range specs {
		out[i] = OutputChannel{Name: s.Name, Phase: s.Phase, Type: s.Type, InputChannel: s.Source}
	}
	return out
}

// ChannelSpecs renders cfg's configured channels (with the site label
// prefix applied) as the []openpmu.ChannelSpec Encode expects.
func (c Config) ChannelSpecs() []openpmu.ChannelSpec {
	specs := make([]openpmu.ChannelSpec, len(c.Channels))
	for i, ch := range c.Channels {
		specs[i] = openpmu.ChannelSpec{
			Name:   c.SiteLabel + ch.Name,
			Type:   ch.Type,
			Phase:  ch.Phase,
			Source: ch.InputChannel,
		}
	}
	return specs
}

func parseMACAddress(s string) ([6]byte, error) {
	var mac [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return mac, err
	}
	if len(hw) != 6 {
		return mac, fmt.Errorf("expected a 6-byte MAC address, got %d bytes", len(hw))
	}
	copy(mac[:], hw)
	return mac, nil
}
