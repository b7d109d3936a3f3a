package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Bren2010/mixer/api"
	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/pool"
	"github.com/Bren2010/mixer/tree/accumulator"
)

const maxBodySize = 1 << 16

var errBadRequest = errors.New("bad request")

// apiFunc handles one API request and returns the value to encode as the JSON
// response body.
type apiFunc func(req *http.Request) (interface{}, error)

// statusOf maps an error returned by an apiFunc to an HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, pool.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case pool.IsPolicyError(err):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, pool.ErrMalformedNote),
		errors.Is(err, accumulator.ErrMalformedPath),
		errors.Is(err, suites.ErrInvalidHex),
		errors.Is(err, suites.ErrInvalidLength):
		return http.StatusBadRequest
	case errors.Is(err, accumulator.ErrNodesNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Handler struct {
	config *APIConfig
	pool   *pool.Pool
	ch     chan<- SequenceRequest
	log    zerolog.Logger
}

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Home)
	r.HandleFunc("/v1/meta", h.HandleAPI(h.Meta)).Methods(http.MethodGet)
	r.HandleFunc("/v1/deposit", h.HandleAPI(h.Deposit)).Methods(http.MethodPost)
	r.HandleFunc("/v1/withdraw", h.HandleAPI(h.Withdraw)).Methods(http.MethodPost)
	r.HandleFunc("/v1/root", h.HandleAPI(h.Root)).Methods(http.MethodGet)
	r.HandleFunc("/v1/roots", h.HandleAPI(h.Roots)).Methods(http.MethodGet)
	r.HandleFunc("/v1/path/{index:[0-9]+}", h.HandleAPI(h.Path)).Methods(http.MethodGet)
	r.HandleFunc("/v1/balance/{account:[0-9]+}", h.HandleAPI(h.Balance)).Methods(http.MethodGet)
	r.HandleFunc("/v1/nullifier/{nullifier}", h.HandleAPI(h.Nullifier)).Methods(http.MethodGet)
	return r
}

// HandleAPI wraps an apiFunc with request ids, logging, metrics and JSON
// encoding.
func (h *Handler) HandleAPI(fn apiFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		id := uuid.New().String()
		log := h.log.With().Str("request_id", id).Str("method", req.Method).Str("path", req.URL.Path).Logger()

		path := req.URL.Path
		if route := mux.CurrentRoute(req); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		req.Body = http.MaxBytesReader(rw, req.Body, maxBodySize)
		res, err := fn(req)

		status := http.StatusOK
		if err != nil {
			status = statusOf(err)
			res = api.ErrorResponse{Error: err.Error(), RequestID: id}
			if status == http.StatusInternalServerError {
				log.Error().Err(err).Msg("request failed")
			} else {
				log.Debug().Err(err).Int("status", status).Msg("request rejected")
			}
		}
		requestCtr.WithLabelValues(path, strconv.Itoa(status)).Inc()

		rw.Header().Set("Content-Type", "application/json")
		rw.Header().Set("X-Request-Id", id)
		rw.WriteHeader(status)
		if err := json.NewEncoder(rw).Encode(res); err != nil {
			log.Warn().Err(err).Msg("failed to write response")
		}
	}
}

// Home redirects requests to a pre-configured URL, like the API documentation.
func (h *Handler) Home(rw http.ResponseWriter, req *http.Request) {
	if h.config.HomeRedirect == "" {
		http.NotFound(rw, req)
		return
	}
	http.Redirect(rw, req, h.config.HomeRedirect, http.StatusSeeOther)
}

func (h *Handler) Meta(req *http.Request) (interface{}, error) {
	return api.MetaResponse{
		Suite:     h.pool.Suite().Name(),
		Depth:     accumulator.Depth,
		Amount:    h.pool.Amount(),
		Custodian: h.pool.Custodian(),
	}, nil
}

// sequence hands a request to the sequencer and waits for its response.
func (h *Handler) sequence(req *http.Request, seq SequenceRequest) (*pool.Note, error) {
	resp := make(chan SequenceResponse, 1)
	seq.Resp = resp

	select {
	case h.ch <- seq:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
	select {
	case res := <-resp:
		return res.Note, res.Err
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

func (h *Handler) Deposit(req *http.Request) (interface{}, error) {
	var body api.DepositRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return h.sequence(req, SequenceRequest{Deposit: &body})
}

func (h *Handler) Withdraw(req *http.Request) (interface{}, error) {
	var note pool.Note
	if err := json.NewDecoder(req.Body).Decode(&note); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, err := h.sequence(req, SequenceRequest{Withdraw: &note}); err != nil {
		return nil, err
	}
	return api.WithdrawResponse{OK: true}, nil
}

func (h *Handler) Root(req *http.Request) (interface{}, error) {
	root, err := h.pool.Root()
	if err != nil {
		return nil, err
	}
	size, err := h.pool.Size()
	if err != nil {
		return nil, err
	}
	return api.RootResponse{Root: root, Size: size}, nil
}

func (h *Handler) Roots(req *http.Request) (interface{}, error) {
	roots, err := h.pool.RootHistory()
	if err != nil {
		return nil, err
	}
	return api.RootsResponse{Roots: roots}, nil
}

func parseUint(req *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(req)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return v, nil
}

func (h *Handler) Path(req *http.Request) (interface{}, error) {
	index, err := parseUint(req, "index")
	if err != nil {
		return nil, err
	}
	return h.pool.Path(index)
}

func (h *Handler) Balance(req *http.Request) (interface{}, error) {
	account, err := parseUint(req, "account")
	if err != nil {
		return nil, err
	}
	balance, err := h.pool.Balance(account)
	if err != nil {
		return nil, err
	}
	return api.BalanceResponse{Account: account, Balance: balance}, nil
}

func (h *Handler) Nullifier(req *http.Request) (interface{}, error) {
	nullifier, err := suites.ParseHash(mux.Vars(req)["nullifier"])
	if err != nil {
		return nil, err
	}
	spent, ok, err := h.pool.NullifierStatus(nullifier)
	if err != nil {
		return nil, err
	}
	return api.NullifierResponse{Nullifier: nullifier, Registered: ok, Spent: spent}, nil
}
