package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"gnss-relay/internal/config"
	"gnss-relay/internal/driver"
	"gnss-relay/internal/gpio"
	"gnss-relay/internal/replay"
	"gnss-relay/internal/sink"
	"gnss-relay/internal/source"
	"gnss-relay/internal/ubx"
)

// openSource opens the configured transport, wrapped in a recording Tee
// when source.record is enabled.
func openSource(ctx context.Context, cfg config.Config) (source.Source, error) {
	src, err := openTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Source.Record.Enable {
		return src, nil
	}
	rec, err := replay.CreateWriter(cfg.Source.Record.Path)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("record %s: %w", cfg.Source.Record.Path, err)
	}
	log.Printf("record path=%s", cfg.Source.Record.Path)
	return source.NewTee(src, rec), nil
}

func openTransport(ctx context.Context, cfg config.Config) (source.Source, error) {
	sc := cfg.Source
	switch sc.Kind {
	case "serial":
		log.Printf("serial device=%s baud=%d driver=%s", sc.Serial.Device, sc.Serial.Baud, sc.Serial.Driver)
		switch sc.Serial.Driver {
		case "bugst":
			s, err := source.OpenBugSerial(sc.Serial.Device, sc.Serial.Baud)
			if err != nil {
				return nil, err
			}
			return s, nil
		case "tarm":
			s, err := source.OpenTarmSerial(sc.Serial.Device, sc.Serial.Baud, sc.Timeout)
			if err != nil {
				return nil, err
			}
			return s, nil
		default:
			s, err := source.OpenTermios(sc.Serial.Device, sc.Serial.Baud)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	case "i2c":
		ic := source.I2CConfig{
			ChunkSize:    sc.I2C.ChunkSize,
			PollInterval: sc.I2C.PollInterval,
			Raw:          sc.I2C.Raw,
		}
		if sc.I2C.TXReady.Enable {
			in, err := gpio.OpenInput(sc.I2C.TXReady.Chip, sc.I2C.TXReady.Name, sc.I2C.TXReady.Line)
			if err != nil {
				return nil, err
			}
			ic.Ready = in
		}
		log.Printf("i2c bus=%s addr=0x%02X chunk=%d", sc.I2C.Bus, sc.I2C.Addr, sc.I2C.ChunkSize)
		s, err := source.OpenI2C(sc.I2C.Bus, sc.I2C.Addr, ic)
		if err != nil {
			if c, ok := ic.Ready.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, err
		}
		return s, nil
	case "tcp":
		log.Printf("tcp addr=%s", sc.TCP.Addr)
		s, err := source.DialTCP(ctx, source.TCPConfig{Addr: sc.TCP.Addr, DialTimeout: sc.TCP.DialTimeout})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "replay":
		log.Printf("replay path=%s speed=%.2f loop=%v", sc.Replay.Path, sc.Replay.Speed, sc.Replay.Loop)
		p, err := replay.OpenPlayer(sc.Replay.Path, sc.Replay.Speed, sc.Replay.Loop)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "stdin":
		return source.NewReader(os.Stdin, 1024), nil
	}
	return nil, fmt.Errorf("unsupported source kind %q", sc.Kind)
}

func configurator(cfg config.Config, src source.Source) (driver.Configurator, error) {
	w, ok := source.Writable(src)
	if !ok {
		return nil, fmt.Errorf("source kind=%s cannot send configuration", cfg.Source.Kind)
	}
	return &ubx.Writer{
		Dest:    ubx.StreamDest{W: w},
		Packets: ubx.DefaultSequence(),
		Gap:     cfg.Receiver.Gap,
	}, nil
}

type sinkSet struct {
	sentences []sink.SentenceSink
	records   []sink.RecordSink
	closers   []io.Closer
}

func (s *sinkSet) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Printf("sink close: %v", err)
		}
	}
	s.closers = nil
}

// buildSinks creates the enabled sinks. stdout backs the console and the
// relay when no relay device is configured; it is never closed here.
func buildSinks(cfg config.Config, stdout io.Writer) (*sinkSet, error) {
	set := &sinkSet{}
	sc := cfg.Sinks

	if sc.Console.Enable {
		set.records = append(set.records, &sink.Console{W: stdout})
	}
	if sc.Relay.Enable {
		if sc.Relay.Device == "" {
			set.sentences = append(set.sentences, sink.NewWriter(stdout))
		} else {
			w, err := sink.OpenSerialWriter(sc.Relay.Device, sc.Relay.Baud)
			if err != nil {
				set.Close()
				return nil, err
			}
			set.sentences = append(set.sentences, w)
			set.closers = append(set.closers, w)
		}
	}
	if sc.UDP.Enable {
		u, err := sink.NewUDP(sc.UDP.Dest)
		if err != nil {
			set.Close()
			return nil, err
		}
		log.Printf("udp dest=%s", sc.UDP.Dest)
		set.sentences = append(set.sentences, u)
		set.closers = append(set.closers, u)
	}
	if sc.MQTT.Enable {
		m, err := sink.DialMQTT(sink.MQTTConfig{
			Broker:         sc.MQTT.Broker,
			Topic:          sc.MQTT.Topic,
			ClientID:       sc.MQTT.ClientID,
			QoS:            byte(sc.MQTT.QoS),
			PublishTimeout: sc.MQTT.PublishTimeout,
		})
		if err != nil {
			set.Close()
			return nil, err
		}
		log.Printf("mqtt broker=%s topic=%s", sc.MQTT.Broker, sc.MQTT.Topic)
		set.sentences = append(set.sentences, m)
		set.records = append(set.records, m)
		set.closers = append(set.closers, m)
	}
	return set, nil
}
