package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gnss-relay/internal/driver"
)

const maxTail = 5000

type StatusResponse struct {
	Service    string                    `json:"service"`
	NowUTC     string                    `json:"now_utc"`
	UptimeSec  int64                     `json:"uptime_sec"`
	Driver     driver.Snapshot           `json:"driver"`
	LastByType map[string]RecordSnapshot `json:"last_by_type"`
}

type SentencesResponse struct {
	NowUTC    string   `json:"now_utc"`
	Total     uint64   `json:"total"`
	Sentences []string `json:"sentences"`
}

// Handler serves the status API. snapshot may be nil before the driver
// exists; logs may be nil when log capture is off.
func Handler(status *Status, snapshot func() driver.Snapshot, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		now := time.Now().UTC()
		resp := StatusResponse{
			Service:    "gnss-relay",
			NowUTC:     now.Format(time.RFC3339Nano),
			UptimeSec:  int64(now.Sub(status.startedAt).Seconds()),
			LastByType: status.Records(),
		}
		if snapshot != nil {
			resp.Driver = snapshot()
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/api/sentences", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		tail, ok := parseTail(w, r, 50)
		if !ok {
			return
		}
		lines, total := status.Sentences(tail)
		if wantText(r) {
			writeLines(w, lines)
			return
		}
		writeJSON(w, SentencesResponse{
			NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
			Total:     total,
			Sentences: lines,
		})
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	return mux
}

// Serve runs the status server until ctx ends.
func Serve(ctx context.Context, listenAddr string, status *Status, snapshot func() driver.Snapshot, logs *LogBuffer) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, snapshot, logs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func parseTail(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	s := strings.TrimSpace(r.URL.Query().Get("tail"))
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > maxTail {
		http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func wantText(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "text")
}

func writeLines(w http.ResponseWriter, lines []string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	for _, line := range lines {
		_, _ = w.Write([]byte(line))
		_, _ = w.Write([]byte("\n"))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
