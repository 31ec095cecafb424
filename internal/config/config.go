package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Receiver ReceiverConfig `yaml:"receiver"`
	NMEA     NMEAConfig     `yaml:"nmea"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Web      WebConfig      `yaml:"web"`
}

type SourceConfig struct {
	// Kind is one of serial, i2c, tcp, replay, stdin.
	Kind    string        `yaml:"kind"`
	Timeout time.Duration `yaml:"timeout"`
	Serial  SerialConfig  `yaml:"serial"`
	I2C     I2CConfig     `yaml:"i2c"`
	TCP     TCPConfig     `yaml:"tcp"`
	Replay  ReplayConfig  `yaml:"replay"`
	Record  RecordConfig  `yaml:"record"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// Driver picks the serial implementation: termios (Linux, x/sys),
	// bugst (go.bug.st/serial) or tarm (github.com/tarm/serial).
	Driver string `yaml:"driver"`
}

type I2CConfig struct {
	Bus          string        `yaml:"bus"`
	Addr         uint16        `yaml:"addr"`
	ChunkSize    int           `yaml:"chunk_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// Raw reads the stream without consulting the length registers.
	Raw     bool          `yaml:"raw"`
	TXReady TXReadyConfig `yaml:"tx_ready"`
}

type TXReadyConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Name   string `yaml:"name"`
	Line   int    `yaml:"line"`
}

type TCPConfig struct {
	Addr        string        `yaml:"addr"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReceiverConfig struct {
	// Configure sends the UBX setup sequence before streaming.
	Configure bool          `yaml:"configure"`
	Gap       time.Duration `yaml:"gap"`
}

type NMEAConfig struct {
	RequireChecksum bool `yaml:"require_checksum"`
}

type SinksConfig struct {
	Console ConsoleConfig `yaml:"console"`
	Relay   RelayConfig   `yaml:"relay"`
	UDP     UDPConfig     `yaml:"udp"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

type ConsoleConfig struct {
	Enable bool `yaml:"enable"`
}

type RelayConfig struct {
	Enable bool `yaml:"enable"`
	// Device is a serial device to relay to; empty means stdout.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable         bool          `yaml:"enable"`
	Broker         string        `yaml:"broker"`
	Topic          string        `yaml:"topic"`
	ClientID       string        `yaml:"client_id"`
	QoS            int           `yaml:"qos"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type WebConfig struct {
	// Listen is the status server address; empty disables it.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is given: NMEA from
// /dev/ttyACM0 at 9600 baud, positions printed to stdout.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Kind:    "serial",
			Timeout: 1 * time.Second,
			Serial:  SerialConfig{Device: "/dev/ttyACM0", Baud: 9600, Driver: "termios"},
			I2C: I2CConfig{
				Bus:          "/dev/i2c-1",
				Addr:         0x42,
				ChunkSize:    64,
				PollInterval: 20 * time.Millisecond,
			},
			TCP:    TCPConfig{DialTimeout: 2 * time.Second},
			Replay: ReplayConfig{Speed: 1},
		},
		Receiver: ReceiverConfig{Gap: 50 * time.Millisecond},
		Sinks: SinksConfig{
			Console: ConsoleConfig{Enable: true},
			Relay:   RelayConfig{Baud: 115200},
			MQTT: MQTTConfig{
				Broker:         "tcp://127.0.0.1:1883",
				Topic:          "gnss",
				ClientID:       "gnss-relay",
				PublishTimeout: 1 * time.Second,
			},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path yields the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	src := &cfg.Source
	src.Kind = strings.ToLower(strings.TrimSpace(src.Kind))
	if src.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be > 0")
	}

	switch src.Kind {
	case "serial":
		if strings.TrimSpace(src.Serial.Device) == "" {
			return fmt.Errorf("source.serial.device is required")
		}
		if src.Serial.Baud <= 0 {
			return fmt.Errorf("source.serial.baud must be > 0")
		}
		src.Serial.Driver = strings.ToLower(strings.TrimSpace(src.Serial.Driver))
		switch src.Serial.Driver {
		case "":
			src.Serial.Driver = "termios"
		case "termios", "bugst", "tarm":
		default:
			return fmt.Errorf("source.serial.driver must be one of termios, bugst, tarm")
		}
	case "i2c":
		if strings.TrimSpace(src.I2C.Bus) == "" {
			return fmt.Errorf("source.i2c.bus is required")
		}
		if src.I2C.Addr == 0 || src.I2C.Addr > 0x7F {
			return fmt.Errorf("source.i2c.addr must be a 7-bit address")
		}
		if src.I2C.ChunkSize <= 0 || src.I2C.ChunkSize > 8192 {
			return fmt.Errorf("source.i2c.chunk_size must be in [1,8192]")
		}
		if src.I2C.PollInterval <= 0 {
			return fmt.Errorf("source.i2c.poll_interval must be > 0")
		}
	case "tcp":
		if strings.TrimSpace(src.TCP.Addr) == "" {
			return fmt.Errorf("source.tcp.addr is required")
		}
		if src.TCP.DialTimeout <= 0 {
			src.TCP.DialTimeout = 2 * time.Second
		}
	case "replay":
		if strings.TrimSpace(src.Replay.Path) == "" {
			return fmt.Errorf("source.replay.path is required")
		}
		if src.Replay.Speed < 0 {
			return fmt.Errorf("source.replay.speed must be >= 0")
		}
		if src.Record.Enable {
			return fmt.Errorf("source.record cannot be used with source.kind=replay")
		}
	case "stdin":
	default:
		return fmt.Errorf("source.kind must be one of serial, i2c, tcp, replay, stdin")
	}

	if src.Record.Enable && strings.TrimSpace(src.Record.Path) == "" {
		return fmt.Errorf("source.record.path is required when source.record.enable is true")
	}

	if cfg.Receiver.Configure {
		switch src.Kind {
		case "serial", "i2c", "tcp":
		default:
			return fmt.Errorf("receiver.configure requires source.kind serial, i2c or tcp")
		}
		if cfg.Receiver.Gap < 0 {
			return fmt.Errorf("receiver.gap must be >= 0")
		}
	}

	sinks := &cfg.Sinks
	if sinks.Relay.Enable && sinks.Relay.Device != "" && sinks.Relay.Baud <= 0 {
		return fmt.Errorf("sinks.relay.baud must be > 0")
	}
	if sinks.UDP.Enable && strings.TrimSpace(sinks.UDP.Dest) == "" {
		return fmt.Errorf("sinks.udp.dest is required when sinks.udp.enable is true")
	}
	if sinks.MQTT.Enable {
		if strings.TrimSpace(sinks.MQTT.Broker) == "" {
			return fmt.Errorf("sinks.mqtt.broker is required when sinks.mqtt.enable is true")
		}
		if strings.TrimSpace(sinks.MQTT.Topic) == "" {
			return fmt.Errorf("sinks.mqtt.topic is required when sinks.mqtt.enable is true")
		}
		if sinks.MQTT.QoS < 0 || sinks.MQTT.QoS > 2 {
			return fmt.Errorf("sinks.mqtt.qos must be 0, 1 or 2")
		}
	}
	return nil
}
