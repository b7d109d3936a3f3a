// Package api defines the JSON messages exchanged with the mixer server, and
// a client for them.
package api

import (
	"github.com/Bren2010/mixer/crypto/suites"
)

type MetaResponse struct {
	Suite     string `json:"suite"`
	Depth     int    `json:"depth"`
	Amount    uint64 `json:"amount"`
	Custodian uint64 `json:"custodian"`
}

type DepositRequest struct {
	Sender    uint64 `json:"sender"`
	Secret    uint64 `json:"secret"`
	Topic     uint64 `json:"topic"`
	Recipient uint64 `json:"recipient"`
}

type WithdrawResponse struct {
	OK bool `json:"ok"`
}

type RootResponse struct {
	Root suites.Hash `json:"root"`
	Size uint64      `json:"size"`
}

type RootsResponse struct {
	Roots []suites.Hash `json:"roots"`
}

type BalanceResponse struct {
	Account uint64 `json:"account"`
	Balance uint64 `json:"balance"`
}

type NullifierResponse struct {
	Nullifier  suites.Hash `json:"nullifier"`
	Registered bool        `json:"registered"`
	Spent      bool        `json:"spent"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}
