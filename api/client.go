package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/pool"
	"github.com/Bren2010/mixer/tree/accumulator"
)

// StatusError is returned when the server responds with a non-2xx status.
type StatusError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *StatusError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("server returned %v: %v", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %v: %v (request %v)", e.Status, e.Message, e.RequestID)
}

// Client talks to a mixer server.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Status: resp.StatusCode, Message: e.Error, RequestID: e.RequestID}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Meta(ctx context.Context) (*MetaResponse, error) {
	var out MetaResponse
	if err := c.do(ctx, http.MethodGet, "/v1/meta", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Deposit(ctx context.Context, req DepositRequest) (*pool.Note, error) {
	var out pool.Note
	if err := c.do(ctx, http.MethodPost, "/v1/deposit", req, &out); err != nil {
		return nil, err
	} else if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Withdraw(ctx context.Context, note *pool.Note) error {
	var out WithdrawResponse
	if err := c.do(ctx, http.MethodPost, "/v1/withdraw", note, &out); err != nil {
		return err
	} else if !out.OK {
		return fmt.Errorf("withdrawal was not accepted")
	}
	return nil
}

func (c *Client) Root(ctx context.Context) (*RootResponse, error) {
	var out RootResponse
	if err := c.do(ctx, http.MethodGet, "/v1/root", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Roots(ctx context.Context) ([]suites.Hash, error) {
	var out RootsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/roots", nil, &out); err != nil {
		return nil, err
	}
	return out.Roots, nil
}

func (c *Client) Path(ctx context.Context, index uint64) (*accumulator.Path, error) {
	var out accumulator.Path
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/path/%d", index), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Balance(ctx context.Context, account uint64) (uint64, error) {
	var out BalanceResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/balance/%d", account), nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) Nullifier(ctx context.Context, nullifier suites.Hash) (*NullifierResponse, error) {
	var out NullifierResponse
	if err := c.do(ctx, http.MethodGet, "/v1/nullifier/"+nullifier.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
