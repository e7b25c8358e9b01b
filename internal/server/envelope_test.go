package server

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/agencydesk/internal/rest"
)

// call sends one request and decodes the response body into v.
func call(t *testing.T, hc *http.Client, method, target, body string, v any) int {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
	return resp.StatusCode
}

func TestResponseEnvelopes(t *testing.T) {
	_, ts := startServer(t)
	hc := ts.Client()

	var list rest.ListEnvelope
	require.Equal(t, http.StatusOK, call(t, hc, http.MethodGet, ts.URL+"/api/clients", "", &list))
	assert.Len(t, list.Data["clients"], 7)

	var one rest.RecordEnvelope
	require.Equal(t, http.StatusOK, call(t, hc, http.MethodGet, ts.URL+"/api/clients/1", "", &one))
	assert.Equal(t, "1", one.Data["client"].ID)
	assert.Equal(t, "Acme Corporation", one.Data["client"].Fields["name"])

	var created rest.RecordEnvelope
	body := `{"name":"Initech","email":"bill@initech.com"}`
	require.Equal(t, http.StatusCreated, call(t, hc, http.MethodPost, ts.URL+"/api/clients", body, &created))
	assert.NotEmpty(t, created.Data["client"].ID)
	assert.Equal(t, "Client created successfully", created.Message)

	var deleted rest.Envelope
	require.Equal(t, http.StatusOK, call(t, hc, http.MethodDelete, ts.URL+"/api/clients/1", "", &deleted))
	assert.Equal(t, "Client deleted successfully", deleted.Message)
	assert.Empty(t, deleted.Data)

	var token rest.TokenEnvelope
	creds := `{"email":"admin@agency.com","password":"secret123"}`
	require.Equal(t, http.StatusOK, call(t, hc, http.MethodPost, ts.URL+"/api/auth/signin", creds, &token))
	assert.Equal(t, testToken, token.Data.Token)
}
