package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gnss-relay/internal/driver"
	"gnss-relay/internal/nmea"
)

func feed(t *testing.T, st *Status, sentences ...string) {
	t.Helper()
	for _, s := range sentences {
		if err := st.AcceptSentence(nmea.Sentence(s)); err != nil {
			t.Fatalf("AcceptSentence: %v", err)
		}
		rec, err := nmea.Decode(nmea.Sentence(s))
		if err != nil {
			continue
		}
		if err := st.AcceptRecord(rec); err != nil {
			t.Fatalf("AcceptRecord: %v", err)
		}
	}
}

func TestAPIStatus(t *testing.T) {
	st := NewStatus(10)
	feed(t, st,
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPGGA,123520,4807.040,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
		"$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K",
	)
	snap := func() driver.Snapshot { return driver.Snapshot{State: driver.StateStreaming, Sentences: 3} }

	ts := httptest.NewServer(Handler(st, snap, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if out.Service != "gnss-relay" {
		t.Fatalf("service=%q", out.Service)
	}
	if out.Driver.State != driver.StateStreaming || out.Driver.Sentences != 3 {
		t.Fatalf("driver=%+v", out.Driver)
	}
	if len(out.LastByType) != 2 {
		t.Fatalf("last_by_type=%v want GPGGA and GPVTG", out.LastByType)
	}
	gga, ok := out.LastByType["GPGGA"]
	if !ok {
		t.Fatalf("missing GPGGA")
	}
	if tod := gga.Fields[nmea.FieldTime].Text; tod != "123520" {
		t.Fatalf("GPGGA time=%q want the later fix", tod)
	}
}

func TestAPIStatus_NilSnapshot(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(1), nil, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
}

func TestAPISentences_TailAndFormat(t *testing.T) {
	st := NewStatus(3)
	feed(t, st, "$GPGLL,1", "$GPGLL,2", "$GPGLL,3", "$GPGLL,4")

	ts := httptest.NewServer(Handler(st, nil, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/sentences?tail=2")
	if err != nil {
		t.Fatalf("get sentences: %v", err)
	}
	var out SentencesResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if out.Total != 4 {
		t.Fatalf("total=%d want 4", out.Total)
	}
	if strings.Join(out.Sentences, " ") != "$GPGLL,3 $GPGLL,4" {
		t.Fatalf("sentences=%q", out.Sentences)
	}

	resp, err = http.Get(ts.URL + "/api/sentences?format=text")
	if err != nil {
		t.Fatalf("get sentences text: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "$GPGLL,2\n$GPGLL,3\n$GPGLL,4\n" {
		t.Fatalf("body=%q", body)
	}
}

func TestAPISentences_BadTail(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(1), nil, nil))
	defer ts.Close()

	for _, q := range []string{"tail=0", "tail=x", "tail=5001"} {
		resp, err := http.Get(ts.URL + "/api/sentences?" + q)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status code=%d want 400", q, resp.StatusCode)
		}
	}
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(1), nil, nil))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code=%d want 405", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodGet {
		t.Fatalf("allow=%q", resp.Header.Get("Allow"))
	}
}

func TestLogBuffer_CapturesLoggerOutput(t *testing.T) {
	buf := NewLogBuffer(2)
	l := log.New(buf, "", 0)
	l.Printf("driver: state idle -> streaming")
	l.Printf("ubx: configured receiver packets=2")
	l.Printf("driver: end of stream sentences=4")
	_, _ = buf.Write([]byte("partial"))

	lines, dropped := buf.Snapshot(0)
	if len(lines) != 2 || dropped != 1 {
		t.Fatalf("lines=%q dropped=%d want 2 lines 1 dropped", lines, dropped)
	}
	if lines[1] != "driver: end of stream sentences=4" {
		t.Fatalf("last line=%q", lines[1])
	}

	_, _ = buf.Write([]byte(" line\n"))
	lines, _ = buf.Snapshot(1)
	if len(lines) != 1 || lines[0] != "partial line" {
		t.Fatalf("lines=%q want joined partial line", lines)
	}

	ts := httptest.NewServer(Handler(NewStatus(1), nil, buf))
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/api/logs?tail=1")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	var out LogsResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(out.Lines) != 1 || out.Lines[0] != "partial line" {
		t.Fatalf("lines=%q", out.Lines)
	}
}
