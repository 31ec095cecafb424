package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Sinks.Console.Enable || cfg.NMEA.RequireChecksum {
		t.Fatalf("console=%v require_checksum=%v want true false", cfg.Sinks.Console.Enable, cfg.NMEA.RequireChecksum)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeTempConfig(t, `
source:
  kind: i2c
  i2c:
    addr: 0x42
    tx_ready: {enable: true, chip: gpiochip0, line: 17}
receiver:
  configure: true
sinks:
  console: {enable: false}
  mqtt: {enable: true, qos: 1}
web:
  listen: ":8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source.Kind != "i2c" || cfg.Source.I2C.Addr != 0x42 || cfg.Source.I2C.Bus != "/dev/i2c-1" {
		t.Fatalf("i2c=%+v", cfg.Source.I2C)
	}
	if cfg.Source.I2C.ChunkSize != 64 || cfg.Source.I2C.PollInterval != 20*time.Millisecond {
		t.Fatalf("i2c defaults not kept: %+v", cfg.Source.I2C)
	}
	if !cfg.Source.I2C.TXReady.Enable || cfg.Source.I2C.TXReady.Line != 17 {
		t.Fatalf("tx_ready=%+v", cfg.Source.I2C.TXReady)
	}
	if cfg.Receiver.Gap != 50*time.Millisecond {
		t.Fatalf("gap=%s want 50ms", cfg.Receiver.Gap)
	}
	if cfg.Sinks.Console.Enable {
		t.Fatalf("console still enabled")
	}
	if cfg.Sinks.MQTT.Topic != "gnss" || cfg.Sinks.MQTT.QoS != 1 {
		t.Fatalf("mqtt=%+v", cfg.Sinks.MQTT)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("listen=%q", cfg.Web.Listen)
	}
}

func TestLoad_SerialDriverNormalized(t *testing.T) {
	path := writeTempConfig(t, "source:\n  serial: {device: /dev/ttyUSB0, baud: 38400, driver: ' BugSt '}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source.Serial.Driver != "bugst" || cfg.Source.Serial.Baud != 38400 {
		t.Fatalf("serial=%+v", cfg.Source.Serial)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"kind", "source: {kind: usb}\n", "source.kind must be one of serial, i2c, tcp, replay, stdin"},
		{"timeout", "source: {timeout: -1s}\n", "source.timeout must be > 0"},
		{"serial device", "source:\n  serial: {device: ''}\n", "source.serial.device is required"},
		{"serial baud", "source:\n  serial: {baud: 0}\n", "source.serial.baud must be > 0"},
		{"serial driver", "source:\n  serial: {driver: cgo}\n", "source.serial.driver must be one of termios, bugst, tarm"},
		{"i2c addr", "source: {kind: i2c, i2c: {addr: 0x80}}\n", "source.i2c.addr must be a 7-bit address"},
		{"i2c chunk", "source: {kind: i2c, i2c: {chunk_size: 9000}}\n", "source.i2c.chunk_size must be in [1,8192]"},
		{"i2c poll", "source: {kind: i2c, i2c: {poll_interval: 0s}}\n", "source.i2c.poll_interval must be > 0"},
		{"tcp addr", "source: {kind: tcp}\n", "source.tcp.addr is required"},
		{"replay path", "source: {kind: replay}\n", "source.replay.path is required"},
		{"replay speed", "source: {kind: replay, replay: {path: x.log, speed: -2}}\n", "source.replay.speed must be >= 0"},
		{"replay record", "source: {kind: replay, replay: {path: x.log}, record: {enable: true, path: y.log}}\n", "source.record cannot be used with source.kind=replay"},
		{"record path", "source: {record: {enable: true}}\n", "source.record.path is required when source.record.enable is true"},
		{"configure stdin", "source: {kind: stdin}\nreceiver: {configure: true}\n", "receiver.configure requires source.kind serial, i2c or tcp"},
		{"udp dest", "sinks: {udp: {enable: true}}\n", "sinks.udp.dest is required when sinks.udp.enable is true"},
		{"mqtt broker", "sinks: {mqtt: {enable: true, broker: ''}}\n", "sinks.mqtt.broker is required when sinks.mqtt.enable is true"},
		{"mqtt qos", "sinks: {mqtt: {enable: true, qos: 3}}\n", "sinks.mqtt.qos must be 0, 1 or 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.yaml))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("source: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}
