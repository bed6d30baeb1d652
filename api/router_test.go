package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maxpoletaev/butterfly/api/handler"
	"github.com/maxpoletaev/butterfly/census"
)

func TestRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	cluster := handler.NewMockCluster(ctrl)
	cluster.EXPECT().CensusRing().Return(census.NewRing())

	mux := CreateRouter(cluster)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/census", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"groups": []}`, recorder.Body.String())

	// Request metrics are recorded for the call above.
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `butterfly_http_requests_total{op="census",status="2xx"}`)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/missing", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
