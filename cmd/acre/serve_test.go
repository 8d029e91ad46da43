package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/acre/config"
	"github.com/Ramsey-B/acre/pkg/database"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// stubDB satisfies database.DB for server wiring tests. Reads report no
// rows so handlers exercise their not-found paths.
type stubDB struct{}

func (s *stubDB) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (s *stubDB) GetContext(context.Context, any, string, ...any) error           { return sql.ErrNoRows }
func (s *stubDB) SelectContext(context.Context, any, string, ...any) error        { return nil }
func (s *stubDB) BeginTxx(context.Context, *sql.TxOptions) (*sqlx.Tx, error)      { return nil, nil }
func (s *stubDB) PingContext(context.Context) error                               { return nil }
func (s *stubDB) Close() error                                                    { return nil }

var _ database.DB = (*stubDB)(nil)

func testServeConfig() config.Config {
	return config.Config{
		AppName:         "acre-test",
		AllowOrigins:    []string{"*"},
		AllowMethods:    []string{http.MethodGet, http.MethodPost},
		KafkaBrokers:    []string{"localhost:9092"},
		KafkaEventTopic: "parcel-events",
	}
}

func TestBuildContainerRegistersDependencies(t *testing.T) {
	container, err := buildContainer(testServeConfig(), testLogger(), &stubDB{})
	require.NoError(t, err)
	assert.NotEmpty(t, container.GetContainerID())
}

func TestBuildServerResolvesHandlersThroughContainer(t *testing.T) {
	cfg := testServeConfig()
	container, err := buildContainer(cfg, testLogger(), &stubDB{})
	require.NoError(t, err)

	e := buildServer(cfg, testLogger(), container)

	// The handler pulls its repository from the request-scoped container;
	// the unknown key surfaces as a 404 through the error handler.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/parcels/125012345", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestBuildServerRegistersRouteGroups(t *testing.T) {
	cfg := testServeConfig()
	container, err := buildContainer(cfg, testLogger(), &stubDB{})
	require.NoError(t, err)

	e := buildServer(cfg, testLogger(), container)

	paths := make(map[string]bool)
	for _, route := range e.Routes() {
		paths[route.Method+" "+route.Path] = true
	}
	assert.True(t, paths["GET /api/v1/parcels/:canonicalKey"])
	assert.True(t, paths["GET /api/v1/parcels/:canonicalKey/events"])
	assert.True(t, paths["GET /api/v1/events/:eventID"])
	assert.True(t, paths["POST /api/v1/events"])
	assert.True(t, paths["GET /api/v1/audit/runs/:runID"])
}
