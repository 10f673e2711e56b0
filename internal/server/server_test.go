package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/go-sentiment/internal/config"
	"github.com/example/go-sentiment/internal/logging"
	"github.com/example/go-sentiment/internal/predict"
	"github.com/example/go-sentiment/internal/vocab"
)

type predictorFunc func(ctx context.Context, review string) (predict.Prediction, error)

func (f predictorFunc) Predict(ctx context.Context, review string) (predict.Prediction, error) {
	return f(ctx, review)
}

func fixedPredictor(score float64) predictorFunc {
	return func(_ context.Context, review string) (predict.Prediction, error) {
		return predict.Prediction{
			Sentiment: predict.Decide(score),
			Score:     score,
			Tokens:    len(strings.Fields(review)),
		}, nil
	}
}

func quietLogger() *slog.Logger {
	return logging.Discard()
}

func newTestHandler(p Predictor, opts ...Option) http.Handler {
	return NewHandler(p, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}

	return out
}

func TestHealth(t *testing.T) {
	h := newTestHandler(fixedPredictor(0.9))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestPredictOK(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.9, "POSITIVE"},
		{0.5, "POSITIVE"},
		{0.2, "NEGATIVE"},
	}

	for _, tc := range tests {
		h := newTestHandler(fixedPredictor(tc.score))

		rec := post(t, h, `{"text": "best movie ever"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("score %v: status = %d body %s", tc.score, rec.Code, rec.Body)
		}

		body := decodeBody(t, rec)
		if body["sentiment"] != tc.want || body["score"] != tc.score || body["tokens"] != float64(3) {
			t.Errorf("score %v: body = %v", tc.score, body)
		}
	}
}

func TestPredictEmptyTextAllowed(t *testing.T) {
	var got *string

	p := predictorFunc(func(_ context.Context, review string) (predict.Prediction, error) {
		got = &review
		return predict.Prediction{Score: 0.3}, nil
	})

	rec := post(t, newTestHandler(p), `{"text": ""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	if got == nil || *got != "" {
		t.Fatalf("predictor saw %v", got)
	}
}

func TestPredictClientErrors(t *testing.T) {
	called := false
	p := predictorFunc(func(context.Context, string) (predict.Prediction, error) {
		called = true
		return predict.Prediction{}, nil
	})
	h := newTestHandler(p, WithMaxTextBytes(16))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "bad json", body: `{"text":`, status: http.StatusBadRequest},
		{name: "missing text", body: `{"review": "hi"}`, status: http.StatusBadRequest},
		{name: "oversize text", body: `{"text": "` + strings.Repeat("a", 17) + `"}`, status: http.StatusRequestEntityTooLarge},
		{name: "oversize body", body: `{"text": "a", "pad": "` + strings.Repeat("x", 4096) + `"}`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, h, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d; want %d (body %s)", rec.Code, tc.status, rec.Body)
			}

			if _, ok := decodeBody(t, rec)["error"]; !ok {
				t.Error("error field missing")
			}
		})
	}

	if called {
		t.Error("predictor must not run for rejected requests")
	}
}

func TestPredictUnknownToken(t *testing.T) {
	p := predictorFunc(func(context.Context, string) (predict.Prediction, error) {
		return predict.Prediction{}, &vocab.UnknownTokenError{Token: "zzz", Position: 2}
	})

	rec := post(t, newTestHandler(p), `{"text": "a b zzz"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d; want 422", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["token"] != "zzz" || body["position"] != float64(2) {
		t.Errorf("body = %v", body)
	}

	if msg, _ := body["error"].(string); !strings.Contains(msg, "unknown token") {
		t.Errorf("error = %q", msg)
	}
}

func TestPredictTimeout(t *testing.T) {
	p := predictorFunc(func(ctx context.Context, _ string) (predict.Prediction, error) {
		<-ctx.Done()
		return predict.Prediction{}, ctx.Err()
	})

	rec := post(t, newTestHandler(p, WithRequestTimeout(10*time.Millisecond)), `{"text": "slow"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d; want 504", rec.Code)
	}
}

func TestPredictInternalError(t *testing.T) {
	p := predictorFunc(func(context.Context, string) (predict.Prediction, error) {
		return predict.Prediction{}, errors.New("scorer broke")
	})

	rec := post(t, newTestHandler(p), `{"text": "x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", rec.Code)
	}
}

func TestPredictMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(fixedPredictor(1)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/predict", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d; want 405", rec.Code)
	}
}

func TestWorkerLimit(t *testing.T) {
	var active, peak atomic.Int32

	release := make(chan struct{})
	p := predictorFunc(func(context.Context, string) (predict.Prediction, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		active.Add(-1)

		return predict.Prediction{Score: 1, Sentiment: predict.Positive}, nil
	})

	h := newTestHandler(p, WithWorkers(1))

	done := make(chan int, 3)
	for range 3 {
		go func() { done <- post(t, h, `{"text": "x"}`).Code }()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)

	for range 3 {
		if code := <-done; code != http.StatusOK {
			t.Errorf("status = %d; want 200", code)
		}
	}

	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d; want 1", peak.Load())
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestHandler(fixedPredictor(0.9), WithRateLimit(2, time.Minute))

	for i := range 2 {
		if rec := post(t, h, `{"text":"great"}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := post(t, h, `{"text":"great"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d; want 429", rec.Code)
	}

	if got := decodeBody(t, rec)["error"]; got != "rate limit exceeded" {
		t.Errorf("error = %v", got)
	}

	// /health is not limited.
	hrec := httptest.NewRecorder()
	h.ServeHTTP(hrec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if hrec.Code != http.StatusOK {
		t.Errorf("health status = %d", hrec.Code)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestHandler(fixedPredictor(0.8), WithRegistry(reg))

	post(t, h, `{"text": "good"}`)
	post(t, h, `{"text": "good"}`)
	post(t, h, `{"text":`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	out := rec.Body.String()
	for _, want := range []string{
		`sentiment_predictions_total{sentiment="POSITIVE"} 2`,
		`sentiment_rejected_requests_total{reason="bad_request"} 1`,
		`sentiment_predict_duration_seconds_count 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServeAndProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Server.ShutdownTimeout = 1

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- New(cfg, fixedPredictor(0.7), quietLogger()).Serve(ctx, ln)
	}()

	addr := ln.Addr().String()

	var probeErr error
	for range 50 {
		if probeErr = ProbeHTTP(addr); probeErr == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if probeErr != nil {
		t.Fatalf("ProbeHTTP: %v", probeErr)
	}

	resp, err := http.Post("http://"+addr+"/v1/predict", "application/json", bytes.NewBufferString(`{"text":"fine"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("predict status = %d", resp.StatusCode)
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("Serve: %v", err)
	}
}

func TestProbeHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if err := ProbeHTTP(strings.TrimPrefix(srv.URL, "http://")); err == nil {
		t.Fatal("expected error for non-200 health")
	}
}
