package sink

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"gnss-relay/internal/nmea"
)

type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	// PublishTimeout bounds how long one publish may hold up the driver.
	PublishTimeout time.Duration
}

type publishFunc func(topic string, qos byte, payload []byte) error

// MQTT publishes raw sentences to <topic>/raw/<TYPE> and every record with
// a position to <topic>/fix as JSON.
type MQTT struct {
	cfg     MQTTConfig
	client  mqtt.Client
	publish publishFunc
}

// Fix is the JSON document published on <topic>/fix.
type Fix struct {
	Talker    string   `json:"talker"`
	Type      string   `json:"type"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	AltitudeM *float64 `json:"alt_m,omitempty"`
	SpeedKt   *float64 `json:"speed_kt,omitempty"`
	CourseDeg *float64 `json:"course_deg,omitempty"`
	Sats      *float64 `json:"sats,omitempty"`
	Time      string   `json:"time,omitempty"`
}

func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	cfg = mqttDefaults(cfg)
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectRetryInterval(10 * time.Second)
	client := mqtt.NewClient(opts)

	tk := client.Connect()
	if !tk.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := tk.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}

	m := &MQTT{cfg: cfg, client: client}
	m.publish = func(topic string, qos byte, payload []byte) error {
		tk := client.Publish(topic, qos, false, payload)
		if !tk.WaitTimeout(cfg.PublishTimeout) {
			return fmt.Errorf("mqtt publish %s: timed out", topic)
		}
		return tk.Error()
	}
	return m, nil
}

func newMQTT(cfg MQTTConfig, publish publishFunc) *MQTT {
	return &MQTT{cfg: mqttDefaults(cfg), publish: publish}
}

func mqttDefaults(cfg MQTTConfig) MQTTConfig {
	if cfg.Topic == "" {
		cfg.Topic = "gnss"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "gnss-relay"
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = time.Second
	}
	return cfg
}

func (m *MQTT) AcceptSentence(s nmea.Sentence) error {
	_, typ := s.Address()
	if typ == "" {
		typ = "unknown"
	}
	return m.publish(m.cfg.Topic+"/raw/"+typ, m.cfg.QoS, []byte(s))
}

func (m *MQTT) AcceptRecord(r nmea.Record) error {
	pos, ok := r.Position()
	if !ok {
		return nil
	}
	fix := Fix{
		Talker: r.Talker,
		Type:   r.Type,
		Lat:    pos.Lat.Degrees(),
		Lon:    pos.Lng.Degrees(),
	}
	fix.AltitudeM = optFloat(r, nmea.FieldAltitudeM)
	fix.SpeedKt = optFloat(r, nmea.FieldSpeedKnots)
	fix.CourseDeg = optFloat(r, nmea.FieldCourseDeg)
	fix.Sats = optFloat(r, nmea.FieldSatellites)
	if tod, ok := r.TimeOfDay(); ok {
		fix.Time = formatTimeOfDay(tod)
	}
	payload, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return m.publish(m.cfg.Topic+"/fix", m.cfg.QoS, payload)
}

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func optFloat(r nmea.Record, f nmea.Field) *float64 {
	v, ok := r.Float(f)
	if !ok {
		return nil
	}
	return &v
}

func formatTimeOfDay(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := d % time.Minute
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s.Seconds())
}
