package work

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stepgraph"
	"github.com/deepnoodle-ai/stepgraph/recoverable"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<a href="/one">one</a> <A HREF='https://example.com/two'>two</A>`))
		case "/echo":
			var payload map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "token", r.Header.Get("X-Key"))
			q, _ := payload["q"].(string)
			w.Write([]byte(q))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	f := NewFetch(server.Client())

	out, err := f.Execute(ctx, map[string]any{"url": server.URL + "/page"})
	require.NoError(t, err)
	result := out.(map[string]any)
	require.Equal(t, 200, result["status_code"])
	require.Equal(t, []string{"/one", "https://example.com/two"}, result["links"])
	require.True(t, stepgraph.DescribeOutput(out).HasMarkdownLikeShape)

	out, err = f.Execute(ctx, map[string]any{
		"url":     server.URL + "/echo",
		"method":  "post",
		"json":    map[string]any{"q": "graphs"},
		"headers": map[string]any{"X-Key": "token"},
	})
	require.NoError(t, err)
	require.Equal(t, "graphs", out.(map[string]any)["extracted_content"])

	_, err = f.Execute(ctx, map[string]any{"url": server.URL + "/busy"})
	require.Error(t, err)
	require.True(t, recoverable.IsRecoverable(err))

	_, err = f.Execute(ctx, map[string]any{"url": server.URL + "/missing"})
	require.Error(t, err)
	require.False(t, recoverable.IsRecoverable(err))

	_, err = f.Execute(ctx, map[string]any{})
	require.Error(t, err)
}
