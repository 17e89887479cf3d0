package collector

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sagan-monitoring/sagan/pkg/message"
)

func newTestRouter(t *testing.T, chainIDs ...string) (*Router, *httptest.Server) {
	svc := newTestService(t, chainIDs...)
	router := NewRouter("127.0.0.1:0", svc, zaptest.NewLogger(t))
	srv := httptest.NewServer(router.Handler)
	t.Cleanup(srv.Close)
	return router, srv
}

func postEnvelope(t *testing.T, url string, env *message.Envelope) *http.Response {
	body, err := json.Marshal(env)
	require.NoError(t, err)
	resp, err := http.Post(url+"/collector", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouterIngestAndQuery(t *testing.T) {
	_, srv := newTestRouter(t, "gaia-1")

	env := &message.Envelope{
		Network: "gaia-1",
		Node:    "nodeid",
		TS:      time.Now().UTC(),
		Msg: []message.Message{
			{Node: &message.NodeInfo{ID: "nodeid", Moniker: "moniker"}},
			{Chain: &message.ChainStatus{LatestBlockHeight: 100}},
		},
	}
	resp := postEnvelope(t, srv.URL, env)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := http.Get(srv.URL + "/net/gaia-1")
	require.NoError(t, err)
	defer got.Body.Close()
	require.Equal(t, http.StatusOK, got.StatusCode)
	require.Equal(t, "application/json", got.Header.Get("Content-Type"))

	var wrapper struct {
		Result *Snapshot `json:"result"`
		Error  *apiError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(got.Body).Decode(&wrapper))
	require.Nil(t, wrapper.Error)
	require.NotNil(t, wrapper.Result)
	require.Len(t, wrapper.Result.Nodes, 1)
	require.Equal(t, "nodeid", wrapper.Result.Nodes[0].ID)
	require.Equal(t, int64(100), wrapper.Result.Chain.LatestBlockHeight)
}

func TestRouterUnknownNetwork(t *testing.T) {
	_, srv := newTestRouter(t, "gaia-1")

	// Errors ride in the body, not the HTTP status.
	resp, err := http.Get(srv.URL + "/net/other-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var wrapper struct {
		Result *Snapshot `json:"result"`
		Error  *apiError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wrapper))
	require.Nil(t, wrapper.Result)
	require.NotNil(t, wrapper.Error)
	require.Contains(t, wrapper.Error.Message, "unknown network")
}

func TestRouterMalformedEnvelope(t *testing.T) {
	_, srv := newTestRouter(t, "gaia-1")

	resp, err := http.Post(srv.URL+"/collector", "application/json",
		strings.NewReader("not json"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A syntactically valid envelope with a malformed message is also
	// rejected.
	resp, err = http.Post(srv.URL+"/collector", "application/json",
		strings.NewReader(`{"network":"gaia-1","node":"n","ts":"2020-07-10T12:00:00Z","msg":[{"chain":{},"node":{}}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouterBodyTooLarge(t *testing.T) {
	_, srv := newTestRouter(t, "gaia-1")

	big := bytes.Repeat([]byte("a"), maxBodySize+1)
	resp, err := http.Post(srv.URL+"/collector", "application/json", bytes.NewReader(big))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRouterMethods(t *testing.T) {
	_, srv := newTestRouter(t, "gaia-1")

	resp, err := http.Get(srv.URL + "/collector")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/net/gaia-1", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouterBadNetworkPath(t *testing.T) {
	_, srv := newTestRouter(t, "gaia-1")

	for _, path := range []string{"/net/", "/net/a/b"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var wrapper struct {
			Error *apiError `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&wrapper))
		resp.Body.Close()
		require.NotNil(t, wrapper.Error, path)
	}
}
