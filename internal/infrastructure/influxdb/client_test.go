package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/infrastructure/config"
	"github.com/nerrad567/plantline/internal/infrastructure/influxdb"
)

var _ engine.Telemetry = (*influxdb.Client)(nil)

// fakeInflux answers /ping and captures line-protocol bodies posted to
// /api/v2/write.
func fakeInflux(t *testing.T) (*httptest.Server, <-chan string) {
	t.Helper()
	writes := make(chan string, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			writes <- string(body)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, writes
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "plantline-test-token",
		Org:           "plantline",
		Bucket:        "runs",
		BatchSize:     100,
		FlushInterval: 60,
	}
}

func receive(t *testing.T, writes <-chan string) string {
	t.Helper()
	select {
	case body := <-writes:
		return body
	case <-time.After(5 * time.Second):
		t.Fatal("no write received")
		return ""
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := influxdb.Connect(testConfig(url)); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_HealthCheck(t *testing.T) {
	srv, _ := fakeInflux(t)

	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
	client.Flush()
}

func TestWriteCommandLatency(t *testing.T) {
	srv, writes := fakeInflux(t)
	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteCommandLatency("physical", "arm", "dropProductAsGripper", 1500*time.Microsecond)
	client.Flush()

	body := receive(t, writes)
	want := "command_latency,backend=physical,class=arm,verb=dropProductAsGripper duration_ms=1.5"
	if !strings.Contains(body, want) {
		t.Errorf("write body = %q, want it to contain %q", body, want)
	}
}

func TestWriteRun(t *testing.T) {
	srv, writes := fakeInflux(t)
	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteRun("simulate", "completed", 12, 12)
	client.Flush()

	body := receive(t, writes)
	for _, want := range []string{"run,kind=simulate,status=completed", "completed=12i", "total=12i"} {
		if !strings.Contains(body, want) {
			t.Errorf("write body = %q, want it to contain %q", body, want)
		}
	}
}

func TestWriteAfterClose(t *testing.T) {
	srv, writes := fakeInflux(t)
	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	client.WriteRun("scan", "failed", 1, 0)
	select {
	case body := <-writes:
		t.Errorf("unexpected write after Close: %q", body)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetOnError(t *testing.T) {
	failures := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code":"invalid","message":"bad point"}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
	client.SetOnError(func(err error) {
		select {
		case failures <- err:
		default:
		}
	})

	client.WriteRun("simulate", "failed", 3, 1)
	client.Flush()

	select {
	case err := <-failures:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error callback not invoked")
	}
}
