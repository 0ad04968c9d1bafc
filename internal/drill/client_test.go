package drill

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func clientFor(t *testing.T, ts *httptest.Server, attempts int) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return New(host, port, 5*time.Second, attempts)
}

func TestQuery_DecodesRows(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query.json", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "SQL", req["queryType"])
		require.Contains(t, req["query"], "SELECT")

		_, _ = w.Write([]byte(`{"columns":["Entity_ID","Linking"],"rows":[{"Entity_ID":"e","Linking":"1600"}]}`))
	}))
	defer ts.Close()

	rs, err := clientFor(t, ts, 1).Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.False(t, rs.Empty())
	require.Equal(t, []string{"Entity_ID", "Linking"}, rs.Columns)
	require.Equal(t, "1600", rs.Rows[0]["Linking"])
}

func TestQuery_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "PARSE ERROR: bad sql", http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := clientFor(t, ts, 3).Query(context.Background(), "SELEC")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")
	require.Equal(t, int32(1), calls.Load())
}

func TestQuery_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"columns":[],"rows":[]}`))
	}))
	defer ts.Close()

	rs, err := clientFor(t, ts, 3).Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.True(t, rs.Empty())
	require.Equal(t, int32(3), calls.Load())
}
