package fileclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second)
}

func TestListFiles(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		_, _ = w.Write([]byte(`{"files":["a.txt","b.bin"]}`))
	})

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.bin"}, files)
}

func TestFileHash(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/a b.txt", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("hash"))
		_, _ = w.Write([]byte(`{"fileHash":"q83v"}`))
	})

	h, err := c.FileHash(context.Background(), "a b.txt")
	require.NoError(t, err)
	assert.Equal(t, "q83v", h)
}

func TestEncryptAndPublish(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/encrypt_and_publish", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"fileName": "a.txt", "publicKey": "pk"}, body)
		_, _ = w.Write([]byte(`{"fileHash":"bafkrei"}`))
	})

	cid, err := c.EncryptAndPublish(context.Background(), "a.txt", "pk")
	require.NoError(t, err)
	assert.Equal(t, "bafkrei", cid)
}

func TestErrorBodies(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid public key"}`))
	})

	_, err := c.EncryptAndPublish(context.Background(), "a.txt", "bad")
	require.ErrorIs(t, err, ErrFileServer)
	assert.ErrorContains(t, err, "invalid public key")

	_, err = c.ListFiles(context.Background())
	require.ErrorIs(t, err, ErrFileServer)
	assert.ErrorContains(t, err, "status 500")
}

func TestUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := c.ListFiles(context.Background())
	require.ErrorIs(t, err, ErrFileServer)
}
