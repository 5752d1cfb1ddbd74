package plunk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

type captured struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, captured{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestUpsertContact(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"success":true}`)
	c := NewClient("pk_test", srv.URL, time.Second, nil, nil)

	err := c.UpsertContact(context.Background(), entity.Identity("ana@x.io"), map[string]any{"source": "landing"})

	require.NoError(t, err)
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/contacts", call.path)
	assert.Equal(t, "Bearer pk_test", call.auth)
	assert.Equal(t, "ana@x.io", call.body["email"])
	assert.Equal(t, true, call.body["subscribed"])
	assert.Equal(t, "landing", call.body["data"].(map[string]any)["source"])
}

func TestEnrollInSequence_MapsAutomationID(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{}`)
	c := NewClient("pk_test", srv.URL, time.Second, map[string]string{"validation-series": "auto_123"}, nil)

	require.NoError(t, c.EnrollInSequence(context.Background(), "ana@x.io", "validation-series"))
	require.NoError(t, c.EnrollInSequence(context.Background(), "ana@x.io", "raw-id"))

	assert.Equal(t, "/automations/auto_123/subscribers", (*calls)[0].path)
	assert.Equal(t, "/automations/raw-id/subscribers", (*calls)[1].path)
	assert.Equal(t, "ana@x.io", (*calls)[0].body["email"])
}

func TestSendTransactional(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{}`)
	c := NewClient("pk_test", srv.URL+"/", time.Second, nil, nil)

	err := c.SendTransactional(context.Background(), "ana@x.io", "core-welcome", map[string]any{"product": "core"})

	require.NoError(t, err)
	call := (*calls)[0]
	assert.Equal(t, "/send", call.path)
	assert.Equal(t, "ana@x.io", call.body["to"])
	assert.Equal(t, "core-welcome", call.body["template"])
}

func TestPost_APIError(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"code":401,"error":"Unauthorized","message":"bad key"}`)
	c := NewClient("pk_wrong", srv.URL, time.Second, nil, nil)

	err := c.UpsertContact(context.Background(), "ana@x.io", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "bad key", apiErr.Message)
}

func TestPost_NotConfigured(t *testing.T) {
	c := NewClient("", "http://unused", time.Second, nil, nil)
	assert.ErrorIs(t, c.SendTransactional(context.Background(), "ana@x.io", "t", nil), ErrNotConfigured)
}

func TestPost_ContextCancelled(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{}`)
	c := NewClient("pk_test", srv.URL, time.Second, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.UpsertContact(ctx, "ana@x.io", nil))
}
