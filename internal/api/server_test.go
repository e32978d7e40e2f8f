package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seglab/xliffcat/internal/config"
	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/logging"
	"github.com/seglab/xliffcat/internal/store"
)

const fixture = `<?xml version="1.0" encoding="UTF-8"?>
<xliff xmlns="urn:oasis:names:tc:xliff:document:2.0" version="2.0" srcLang="en" trgLang="fr">
  <file id="f1" original="sample.html">
    <unit id="u1">
      <segment id="s1">
        <source>Hello world</source>
      </segment>
      <segment id="s2">
        <source>Hello world</source>
      </segment>
    </unit>
  </file>
</xliff>
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.xlf")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0644))

	s, err := store.Open(path, "", "", config.Default(), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(New(s, logging.Nop(), "").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var out map[string]string
	getJSON(t, srv.URL+"/health", &out)
	assert.Equal(t, "ok", out["status"])
}

func TestListSegments(t *testing.T) {
	srv := newTestServer(t)

	var out struct {
		Segments []domain.SegmentView `json:"segments"`
	}
	getJSON(t, srv.URL+"/segments?start=0&count=10", &out)
	require.Len(t, out.Segments, 2)
	assert.Equal(t, "Hello world", out.Segments[0].Source)
	assert.Equal(t, domain.Initial, out.Segments[0].State)
}

func TestSaveSegmentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/segments/save", SaveRequest{
		File: "f1", Unit: "u1", Segment: "s1",
		Translation: "Bonjour le monde", Confirm: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var saved struct {
		Propagated []domain.Propagated `json:"propagated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	require.NotEmpty(t, saved.Propagated)
	assert.Equal(t, "s2", saved.Propagated[0].Segment)

	var out struct {
		Segments []domain.SegmentView `json:"segments"`
	}
	getJSON(t, srv.URL+"/segments", &out)
	assert.Equal(t, domain.Final, out.Segments[0].State)
	assert.Equal(t, "Bonjour le monde", out.Segments[1].Target)
}

func TestSaveSegmentValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/segments/save", SaveRequest{File: "f1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var status domain.Status
	getJSON(t, srv.URL+"/status", &status)
	assert.Equal(t, 4, status.Total)
	assert.Equal(t, 0, status.Confirmed)
}

func TestMatchesEndpointRequiresKeys(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/matches?file=f1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest("OPTIONS", srv.URL+"/segments", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
