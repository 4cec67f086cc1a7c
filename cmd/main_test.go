package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-compliance/internal/config"
	"github.com/ukydev/fleet-compliance/internal/reporting"
)

func memoryConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		HTTPAddr:           "127.0.0.1:0",
		ShutdownTimeout:    2 * time.Second,
		Store:              "memory",
		BreakerMaxFailures: 3,
		BreakerTimeout:     time.Second,
		RetryMaxRetries:    1,
		CronSchedule:       "@every 1h",
	}
}

func TestOpenStores_Memory(t *testing.T) {
	logger, _ := test.NewNullLogger()
	bundle, err := openStores(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)

	assert.NotNil(t, bundle.stores.Orders)
	assert.NotNil(t, bundle.stores.Templates)
	assert.NotNil(t, bundle.stores.Usage)
	assert.NotNil(t, bundle.stores.Inspections)
	assert.NoError(t, bundle.close(context.Background()))
}

func TestOpenStores_MongoUnreachable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := memoryConfig()
	cfg.Store = "mongo"
	cfg.MongoURI = "not-a-uri"

	_, err := openStores(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestServer_InspectionFlow(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := memoryConfig()
	bundle, err := openStores(context.Background(), cfg, logger)
	require.NoError(t, err)

	svc := newService(cfg, bundle.stores, logger)
	reg := newRegistry()
	reporting.NewExporter(reg)
	srv := newServer(cfg, svc, reg, logger)

	body := `{"id":"insp-1","report_number":"MD0042","vehicle_id":"truck-7","inspection_date":"2026-03-01T00:00:00Z","out_of_service":true,"violations":[]}`
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/inspections", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Body.String(), `"source":"inspection"`)

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/workorders?equipment_id=truck-7", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"inspection_id":"insp-1"`)

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fleet_compliance_work_orders_total")
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx, memoryConfig(), logger) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
