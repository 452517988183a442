// Package fileclient calls the offeror's file server: listing served files
// and sealing a file to a buyer's key before it is published.
package fileclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrFileServer = errors.New("file server error")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileServer, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrFileServer, err)
	}
	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			return fmt.Errorf("%w: %s", ErrFileServer, eb.Error)
		}
		return fmt.Errorf("%w: status %d", ErrFileServer, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrFileServer, err)
	}
	return nil
}

func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Files []string `json:"files"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// FileHash returns the base64 sha256 digest the server computes for name.
func (c *Client) FileHash(ctx context.Context, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(name)+"?hash=true", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		FileHash string `json:"fileHash"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.FileHash, nil
}

// EncryptAndPublish seals name to publicKey (base64 X25519) and returns
// the content identifier of the published ciphertext.
func (c *Client) EncryptAndPublish(ctx context.Context, name, publicKey string) (string, error) {
	payload, err := json.Marshal(map[string]string{"fileName": name, "publicKey": publicKey})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/encrypt_and_publish", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		FileHash string `json:"fileHash"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.FileHash, nil
}
