package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"modelrepo/pkg/types"
)

// Client is a thin HTTP client over the modelrepod API surface. Every method
// writes its result to w and returns a non-nil error on any non-2xx
// response; query methods print formatted JSON, while RegisterRepo,
// UnregisterRepo and UnloadAll print a plain confirmation line.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr types.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *Client) Poll(w io.Writer) error {
	var result types.PollResult
	if err := c.do(http.MethodPost, "/v2/repository/index", nil, &result); err != nil {
		return err
	}
	return printJSON(w, result)
}

func (c *Client) Index(w io.Writer, readyOnly bool) error {
	path := "/v2/repository/index"
	if readyOnly {
		path += "?ready_only=true"
	}
	var entries []types.RepositoryIndexEntry
	if err := c.do(http.MethodGet, path, nil, &entries); err != nil {
		return err
	}
	return printJSON(w, entries)
}

func (c *Client) Load(w io.Writer, name string, params map[string]string) error {
	var verdict types.ModelVerdict
	body := types.ModelLoadRequest{Parameters: params}
	if err := c.do(http.MethodPost, "/v2/repository/models/"+name+"/load", body, &verdict); err != nil {
		return err
	}
	return printJSON(w, verdict)
}

func (c *Client) Unload(w io.Writer, name string, cascade bool) error {
	var verdict types.ModelVerdict
	body := types.ModelUnloadRequest{UnloadDependents: cascade}
	if err := c.do(http.MethodPost, "/v2/repository/models/"+name+"/unload", body, &verdict); err != nil {
		return err
	}
	return printJSON(w, verdict)
}

func (c *Client) RegisterRepo(w io.Writer, path string) error {
	body := types.RepositoryRegisterRequest{Path: path}
	if err := c.do(http.MethodPost, "/v2/repository/register", body, nil); err != nil {
		return err
	}
	fmt.Fprintf(w, "registered %s\n", path)
	return nil
}

func (c *Client) UnregisterRepo(w io.Writer, path string) error {
	body := types.RepositoryUnregisterRequest{Path: path}
	if err := c.do(http.MethodPost, "/v2/repository/unregister", body, nil); err != nil {
		return err
	}
	fmt.Fprintf(w, "unregistered %s\n", path)
	return nil
}

func (c *Client) Status(w io.Writer, name string) error {
	var status types.ModelStatusResponse
	if err := c.do(http.MethodGet, "/v2/models/"+name, nil, &status); err != nil {
		return err
	}
	return printJSON(w, status)
}

func (c *Client) UnloadAll(w io.Writer) error {
	if err := c.do(http.MethodPost, "/v2/repository/unload_all", nil, nil); err != nil {
		return err
	}
	fmt.Fprintln(w, "unloaded all models")
	return nil
}

// parseKV parses a list of "key=value" strings into a map, as accepted by
// the --param flag.
func parseKV(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
