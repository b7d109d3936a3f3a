package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Bren2010/mixer/api"
	"github.com/Bren2010/mixer/pool"
)

// SequenceRequest asks the sequencer to perform exactly one of a deposit or a
// withdrawal.
type SequenceRequest struct {
	Deposit  *api.DepositRequest
	Withdraw *pool.Note
	Resp     chan<- SequenceResponse
}

type SequenceResponse struct {
	Note *pool.Note
	Err  error
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	} else if pool.IsPolicyError(err) {
		return "rejected"
	}
	return "error"
}

// sequencer is a goroutine that receives state-changing requests over `ch`,
// applies them to the pool one at a time, and responds with the result.
func sequencer(p *pool.Pool, ch <-chan SequenceRequest, log zerolog.Logger) {
	for req := range ch {
		var res SequenceResponse

		start := time.Now()
		if req.Deposit != nil {
			d := req.Deposit
			res.Note, res.Err = p.Deposit(d.Sender, d.Secret, d.Topic, d.Recipient)
			depositOps.WithLabelValues(outcome(res.Err)).Inc()
			operationDur.WithLabelValues("deposit").Observe(float64(time.Since(start).Microseconds()))
		} else {
			res.Err = p.Withdraw(req.Withdraw)
			withdrawOps.WithLabelValues(outcome(res.Err)).Inc()
			operationDur.WithLabelValues("withdraw").Observe(float64(time.Since(start).Microseconds()))
		}

		if size, err := p.Size(); err == nil {
			poolSize.Set(float64(size))
		}
		if n, err := p.RootCount(); err == nil {
			rootHistoryLen.Set(float64(n))
		} else {
			log.Error().Err(err).Msg("failed to read root history")
		}

		select {
		case req.Resp <- res:
		default:
		}
	}
}
