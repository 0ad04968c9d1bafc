// Package drill is a minimal client for the Apache Drill REST query API.
package drill

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/avast/retry-go/v4"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ResultSet is one query result: Drill returns every cell as a string.
type ResultSet struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// Empty reports whether the query matched no rows.
func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

type queryRequest struct {
	QueryType string            `json:"queryType"`
	Query     string            `json:"query"`
	Options   map[string]string `json:"options,omitempty"`
}

// Client issues SQL statements against a Drill REST endpoint with bounded
// retries on transport failures and 5xx responses.
type Client struct {
	queryURL string
	http     *http.Client
	attempts uint
}

// New builds a client for http://host:port/query.json. attempts < 1 means a
// single try.
func New(host string, port int, timeout time.Duration, attempts int) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		queryURL: fmt.Sprintf("http://%s:%d/query.json", host, port),
		http:     &http.Client{Timeout: timeout},
		attempts: uint(attempts),
	}
}

// Query runs one SQL statement and decodes the result set.
func (c *Client) Query(ctx context.Context, sql string) (*ResultSet, error) {
	body, err := json.Marshal(queryRequest{
		QueryType: "SQL",
		Query:     sql,
		Options:   map[string]string{"drill.exec.http.rest.errors.verbose": "true"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "drill: encode query")
	}

	var out ResultSet
	err = retry.Do(
		func() error { return c.post(ctx, body, &out) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, errPermanent) }),
	)
	if err != nil {
		return nil, errors.Wrap(err, "drill: query failed")
	}
	return &out, nil
}

// errPermanent marks responses that a retry cannot fix (4xx, bad SQL).
var errPermanent = errors.New("permanent")

func (c *Client) post(ctx context.Context, body []byte, out *ResultSet) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := errors.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return errors.Wrap(errPermanent, err.Error())
		}
		return err
	}

	*out = ResultSet{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
