// Package driver runs the receive loop: it pulls chunks from a source,
// frames them into sentences, validates and decodes each one, and hands
// the results to the sinks.
//
// Everything runs on the goroutine that calls Run. Snapshot is the only
// method safe to call from other goroutines.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"

	"gnss-relay/internal/nmea"
	"gnss-relay/internal/sink"
	"gnss-relay/internal/source"
)

type Config struct {
	// PollTimeout bounds each wait on the source.
	PollTimeout time.Duration
	Validator   nmea.Validator
}

// Configurator sends one-shot setup to the receiver before streaming.
type Configurator interface {
	Configure(ctx context.Context) error
}

type Option func(*Driver)

func WithSentenceSinks(s ...sink.SentenceSink) Option {
	return func(d *Driver) { d.sentenceSinks = append(d.sentenceSinks, s...) }
}

func WithRecordSinks(s ...sink.RecordSink) Option {
	return func(d *Driver) { d.recordSinks = append(d.recordSinks, s...) }
}

func WithConfigurator(c Configurator) Option {
	return func(d *Driver) { d.configurator = c }
}

// WithDecodeErrorHook is called for every sentence that validated but
// failed to decode.
func WithDecodeErrorHook(fn func(s nmea.Sentence, err error)) Option {
	return func(d *Driver) { d.onDecodeError = fn }
}

type Driver struct {
	cfg           Config
	src           source.Source
	framer        nmea.Framer
	sentenceSinks []sink.SentenceSink
	recordSinks   []sink.RecordSink
	configurator  Configurator
	onDecodeError func(s nmea.Sentence, err error)
	now           func() time.Time

	lifecycle *fsm.FSM
	running   atomic.Bool

	bytes        atomic.Uint64
	chunks       atomic.Uint64
	noData       atomic.Uint64
	sentences    atomic.Uint64
	rejected     atomic.Uint64
	decodeErrors atomic.Uint64
	sinkErrors   atomic.Uint64
	overflows    atomic.Uint64

	mu        sync.Mutex
	lastType  string
	lastLat   *float64
	lastLon   *float64
	lastError string
	startedAt time.Time
}

// Snapshot is a point-in-time copy of the driver's counters.
type Snapshot struct {
	State        string   `json:"state"`
	StartedUTC   string   `json:"started_utc,omitempty"`
	Bytes        uint64   `json:"bytes"`
	Chunks       uint64   `json:"chunks"`
	NoDataPolls  uint64   `json:"no_data_polls"`
	Sentences    uint64   `json:"sentences"`
	Rejected     uint64   `json:"rejected"`
	DecodeErrors uint64   `json:"decode_errors"`
	SinkErrors   uint64   `json:"sink_errors"`
	Overflows    uint64   `json:"overflows"`
	LastType     string   `json:"last_type,omitempty"`
	LastLat      *float64 `json:"last_lat,omitempty"`
	LastLon      *float64 `json:"last_lon,omitempty"`
	LastError    string   `json:"last_error,omitempty"`
}

func New(cfg Config, src source.Source, opts ...Option) *Driver {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	d := &Driver{cfg: cfg, src: src, now: time.Now, lifecycle: newLifecycle()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives the source until ctx is cancelled or the source fails.
//
// A clean end of stream (io.EOF) and cancellation return nil; any other
// source error ends the session and is returned. A chunk already read is
// always framed completely before cancellation is honored.
func (d *Driver) Run(ctx context.Context) error {
	if d.running.Swap(true) {
		return fmt.Errorf("driver already running")
	}
	d.mu.Lock()
	d.startedAt = d.now().UTC()
	d.mu.Unlock()

	if d.configurator != nil {
		d.transition(eventConfigure)
		if err := d.configurator.Configure(ctx); err != nil {
			// Receivers keep emitting their default sentences when
			// configuration does not take.
			log.Printf("driver: receiver configuration failed: %v", err)
			d.setLastError("configure: " + err.Error())
		}
	}
	d.transition(eventStream)

	for {
		if ctx.Err() != nil {
			d.transition(eventStop)
			return nil
		}

		chunk, err := d.src.Next(ctx, d.cfg.PollTimeout)
		switch source.Classify(chunk, err) {
		case source.StatusNoData:
			d.noData.Add(1)
			continue
		case source.StatusError:
			d.drain(chunk)
			if errors.Is(err, io.EOF) {
				log.Printf("driver: end of stream sentences=%d", d.sentences.Load())
				d.transition(eventStop)
				return nil
			}
			d.setLastError(err.Error())
			d.transition(eventFail)
			return fmt.Errorf("source: %w", err)
		}
		d.drain(chunk)
	}
}

// drain frames a whole chunk and processes every sentence it completes.
func (d *Driver) drain(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	d.chunks.Add(1)
	d.bytes.Add(uint64(len(chunk)))

	before := d.framer.Stats().Overflows
	d.framer.FeedChunk(chunk, d.handle)
	if n := d.framer.Stats().Overflows - before; n > 0 {
		d.overflows.Add(n)
	}
}

func (d *Driver) handle(candidate nmea.Sentence) {
	s, err := d.cfg.Validator.Validate(candidate)
	if err != nil {
		d.rejected.Add(1)
		return
	}
	d.sentences.Add(1)

	for _, sk := range d.sentenceSinks {
		if err := sk.AcceptSentence(s); err != nil {
			d.sinkError(err)
		}
	}

	rec, err := nmea.Decode(s)
	if err != nil {
		d.decodeErrors.Add(1)
		d.setLastError(err.Error())
		log.Printf("driver: decode failed err=%v sentence=%q", err, s)
		if d.onDecodeError != nil {
			d.onDecodeError(s, err)
		}
		return
	}
	d.noteRecord(rec)

	for _, sk := range d.recordSinks {
		if err := sk.AcceptRecord(rec); err != nil {
			d.sinkError(err)
		}
	}
}

func (d *Driver) noteRecord(rec nmea.Record) {
	lat, okLat := rec.Latitude()
	lon, okLon := rec.Longitude()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastType = rec.Type
	if okLat && okLon {
		d.lastLat = &lat
		d.lastLon = &lon
	}
}

func (d *Driver) sinkError(err error) {
	d.sinkErrors.Add(1)
	d.setLastError("sink: " + err.Error())
	log.Printf("driver: sink failed err=%v", err)
}

func (d *Driver) setLastError(msg string) {
	d.mu.Lock()
	d.lastError = msg
	d.mu.Unlock()
}

func (d *Driver) transition(event string) {
	if err := d.lifecycle.Event(event); err != nil {
		log.Printf("driver: lifecycle event=%s from=%s: %v", event, d.lifecycle.Current(), err)
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() string {
	return d.lifecycle.Current()
}

func (d *Driver) Snapshot() Snapshot {
	out := Snapshot{
		State:        d.lifecycle.Current(),
		Bytes:        d.bytes.Load(),
		Chunks:       d.chunks.Load(),
		NoDataPolls:  d.noData.Load(),
		Sentences:    d.sentences.Load(),
		Rejected:     d.rejected.Load(),
		DecodeErrors: d.decodeErrors.Load(),
		SinkErrors:   d.sinkErrors.Load(),
		Overflows:    d.overflows.Load(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out.LastType = d.lastType
	out.LastError = d.lastError
	if d.lastLat != nil {
		lat, lon := *d.lastLat, *d.lastLon
		out.LastLat = &lat
		out.LastLon = &lon
	}
	if !d.startedAt.IsZero() {
		out.StartedUTC = d.startedAt.Format(time.RFC3339Nano)
	}
	return out
}
