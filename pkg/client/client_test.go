package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterEndpointDecodesDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/v1/endpoints/", r.URL.Path)
		var body RouteKey
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "orders", body.Domain)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(apiResponse{
			Success: true,
			Data:    json.RawMessage(`{"id":"ep-1","route_key":{"domain":"orders","method":"GET","path_pattern":"/orders/{id}"}}`),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	e, err := c.RegisterEndpoint(context.Background(), RouteKey{Domain: "orders", Method: "GET", PathPattern: "/orders/{id}"})
	require.NoError(t, err)
	assert.Equal(t, "ep-1", e.ID)
	assert.Equal(t, "orders", e.RouteKey.Domain)
}

func TestDoReturnsErrorOnFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(apiResponse{Success: false, Error: "not_found", Message: "endpoint not found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetEndpoint(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_found")
}

func TestActivateProviderSendsExpectedPath(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewEncoder(w).Encode(apiResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.ActivateProvider(context.Background(), "prov-1"))
	assert.Equal(t, "/admin/v1/providers/prov-1/activate", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}
