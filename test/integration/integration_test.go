package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/athenakad/crud-service-update/cmd/recordapi/metrics"
	"github.com/athenakad/crud-service-update/cmd/recordapi/router"
	"github.com/athenakad/crud-service-update/pkg/influx"
	"github.com/athenakad/crud-service-update/pkg/records"
)

const (
	testOrg    = "test-org"
	testBucket = "test-bucket"
	testToken  = "integration-test-token"
)

// TestRecordAPIEndToEnd runs the full CRUD flow against a real InfluxDB
// 2.7 container, the same image the production deployment runs.
func TestRecordAPIEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "admin-password",
			"DOCKER_INFLUXDB_INIT_ORG":         testOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      testBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": testToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start InfluxDB container")
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8086/tcp")
	require.NoError(t, err)

	influxURL := fmt.Sprintf("http://%s:%s", host, port.Port())
	t.Logf("InfluxDB URL: %s", influxURL)

	store := &influx.Client{
		BaseURL: influxURL,
		Token:   testToken,
		Org:     testOrg,
		Bucket:  testBucket,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := records.NewService(store, 5*time.Minute, time.Hour, logger)
	m := metrics.New(prometheus.NewRegistry())
	api := httptest.NewServer(router.SetupRoutes(svc, m, logger))
	defer api.Close()

	client := api.Client()

	// 1. Create a fresh record.
	status, body := doJSON(t, client, http.MethodPost, api.URL+"/data", `{"id":"sensor-1","value":1.5}`)
	require.Equal(t, http.StatusOK, status, "create: %s", body)
	require.Contains(t, body, "Data created successfully")

	// 2. A second create for the same id must be rejected once the
	// write becomes visible to the existence probe. InfluxDB makes no
	// read-after-write promise, so poll rather than assert immediately.
	require.Eventually(t, func() bool {
		status, body := doJSON(t, client, http.MethodPost, api.URL+"/data", `{"id":"sensor-1","value":9.9}`)
		return status == http.StatusBadRequest && strings.Contains(body, "already exists")
	}, 15*time.Second, 250*time.Millisecond, "duplicate create was never rejected")

	// 3. The point shows up in the trailing window.
	var listed struct {
		Results []struct {
			Time  time.Time `json:"time"`
			ID    string    `json:"id"`
			Value float64   `json:"value"`
		} `json:"results"`
	}
	status, body = doJSON(t, client, http.MethodGet, api.URL+"/data", "")
	require.Equal(t, http.StatusOK, status, "list: %s", body)
	require.NoError(t, json.Unmarshal([]byte(body), &listed))
	require.Len(t, listed.Results, 1)
	require.Equal(t, "sensor-1", listed.Results[0].ID)
	require.Equal(t, 1.5, listed.Results[0].Value)

	// 4. Update appends regardless of prior state; the raw window then
	// shows both writes.
	status, body = doJSON(t, client, http.MethodPut, api.URL+"/data/sensor-1", `{"id":"sensor-1","value":2.5}`)
	require.Equal(t, http.StatusOK, status, "update: %s", body)
	require.Contains(t, body, "updated")

	require.Eventually(t, func() bool {
		_, body := doJSON(t, client, http.MethodGet, api.URL+"/data", "")
		var got struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			return false
		}
		return len(got.Results) == 2
	}, 15*time.Second, 250*time.Millisecond, "update's point never became visible")

	// 5. Update on a key that was never created silently creates it.
	status, body = doJSON(t, client, http.MethodPut, api.URL+"/data/sensor-2", `{"id":"sensor-2","value":7.0}`)
	require.Equal(t, http.StatusOK, status, "upsert: %s", body)

	// 6. Delete purges the full history for the key.
	require.Eventually(t, func() bool {
		status, _ := doJSON(t, client, http.MethodDelete, api.URL+"/data/sensor-1", "")
		return status == http.StatusOK
	}, 15*time.Second, 250*time.Millisecond, "delete never succeeded")

	require.Eventually(t, func() bool {
		_, body := doJSON(t, client, http.MethodGet, api.URL+"/data", "")
		return !strings.Contains(body, "sensor-1")
	}, 15*time.Second, 250*time.Millisecond, "purged points still visible")

	// 7. Deleting an id that never existed is a client error.
	status, body = doJSON(t, client, http.MethodDelete, api.URL+"/data/never-created", "")
	require.Equal(t, http.StatusBadRequest, status, "delete missing: %s", body)
	require.Contains(t, body, "doesn't exist")
}

func doJSON(t *testing.T, client *http.Client, method, url, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}
