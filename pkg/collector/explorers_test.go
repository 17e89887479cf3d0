package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uptime":
			_, _ = w.Write([]byte(`[{"height":1000,"signed":true},{"height":999,"signed":false}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := srv.Client()

	var blocks []ngBlock
	require.NoError(t, getJSON(context.Background(), client, srv.URL+"/uptime", &blocks))
	require.Equal(t, []ngBlock{
		{Height: 1000, Signed: true},
		{Height: 999, Signed: false},
	}, blocks)

	require.Error(t, getJSON(context.Background(), client, srv.URL+"/missing", &blocks))
}

func TestMintscanUptimeDecoding(t *testing.T) {
	payload := `{
		"latest_height": 1262196,
		"uptime": [
			{"height": 1262190},
			{"height": 1262180},
			{"height": 1262170}
		]
	}`
	var uptime mintscanUptime
	require.NoError(t, json.Unmarshal([]byte(payload), &uptime))

	// The uptime array holds one entry per missed block.
	require.Len(t, uptime.Uptime, 3)
	require.Equal(t, uint64(1262196), uptime.LatestHeight)
}
