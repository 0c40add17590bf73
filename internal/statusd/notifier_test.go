package statusd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

func TestValidateCallbackURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "valid external URL", url: "https://example.com/callback"},
		{name: "valid localhost", url: "http://localhost:8000/callback"},
		{name: "run_id template", url: "http://localhost:8000/callback/{run_id}"},
		{name: "invalid scheme", url: "ftp://example.com/callback", wantErr: ErrInvalidURL},
		{name: "missing hostname", url: "http:///callback", wantErr: ErrInvalidURL},
		{name: "metadata IP", url: "http://169.254.169.254/latest", wantErr: ErrMetadataEndpoint},
		{name: "metadata hostname", url: "http://metadata.google.internal/x", wantErr: ErrMetadataEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCallbackURL(tt.url)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func finishedStatus() Status {
	store := NewProgressStore()
	store.Start("tune-42")
	store.OnEvaluation(models.Evaluation{Seq: 1})
	store.Finish(&models.SearchOutcome{Interval: 3, GasLimit: 650, Throughput: 612.5}, nil)
	return store.Snapshot()
}

func TestNotifierSendsPayload(t *testing.T) {
	var (
		got    NotificationPayload
		secret string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get("X-Optibench-Callback-Secret")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier()
	n.Notify(context.Background(), srv.URL+"/runs/{run_id}/done", "s3cret", finishedStatus())
	n.Wait()

	require.Equal(t, "/runs/tune-42/done", path)
	require.Equal(t, "s3cret", secret)
	require.Equal(t, "tune-42", got.RunID)
	require.Equal(t, "completed", got.Status)
	require.Equal(t, 3, got.Interval)
	require.Equal(t, 650, got.GasLimit)
	require.Equal(t, 612.5, got.Throughput)
	require.Equal(t, 1, got.Evaluations)
	require.NotZero(t, got.EndedAtUnixMs)
}

func TestNotifierRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier()
	n.baseDelay = 10 * time.Millisecond
	n.Notify(context.Background(), srv.URL, "", finishedStatus())
	n.Wait()

	require.EqualValues(t, 3, calls.Load())
}

func TestNotifierGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier()
	n.baseDelay = time.Millisecond
	n.Notify(context.Background(), srv.URL, "", finishedStatus())
	n.Wait()

	require.EqualValues(t, n.maxRetries+1, calls.Load())
}

func TestNotifierSkipsEmptyAndInvalidURL(t *testing.T) {
	n := NewNotifier()
	n.Notify(context.Background(), "", "", finishedStatus())
	n.Notify(context.Background(), "ftp://example.com", "", finishedStatus())
	n.Wait()
}

func TestNotifierStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewNotifier()
	n.baseDelay = time.Minute
	n.Notify(ctx, srv.URL, "", finishedStatus())

	done := make(chan struct{})
	go func() {
		n.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait blocked after the context was cancelled")
	}
	require.EqualValues(t, 1, calls.Load())
}
