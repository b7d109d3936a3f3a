// Package pool implements an anonymity pool: deposits are recorded as
// commitments in an accumulator, and withdrawals spend a nullifier against any
// root the accumulator has produced.
package pool

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Bren2010/mixer/crypto/commitments"
	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/db"
	"github.com/Bren2010/mixer/tree/accumulator"
)

const (
	DefaultAmount    = 1000
	DefaultCustodian = 123948573
	DefaultAccount   = 123
)

// Option configures a Pool.
type Option func(*Pool)

// WithAmount sets the fixed amount moved by every deposit and withdrawal.
func WithAmount(amount uint64) Option {
	return func(p *Pool) { p.amount = amount }
}

// WithCustodian sets the account that holds deposited funds.
func WithCustodian(account uint64) Option {
	return func(p *Pool) { p.custodian = account }
}

// WithLogger sets the logger accepted deposits and withdrawals are reported
// to. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// Pool is the ledger of an anonymity pool. It is safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	cs    suites.Suite
	store db.PoolStore
	tree  *accumulator.Tree

	amount    uint64
	custodian uint64
	log       zerolog.Logger
}

// New returns a pool backed by `store`. If the store is empty, the tree is
// initialized and committed.
func New(cs suites.Suite, store db.PoolStore, opts ...Option) (*Pool, error) {
	p := &Pool{
		cs:        cs,
		store:     store,
		amount:    DefaultAmount,
		custodian: DefaultCustodian,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.amount == 0 {
		return nil, errors.New("deposit amount must be positive")
	}

	tree, err := accumulator.NewTree(cs, store.TreeStore())
	if err != nil {
		store.Rollback()
		return nil, err
	} else if err := store.Commit(); err != nil {
		store.Rollback()
		return nil, err
	}
	p.tree = tree

	return p, nil
}

// finish commits buffered writes if err is nil, and discards them otherwise.
func (p *Pool) finish(err error) error {
	if err == nil {
		err = p.store.Commit()
	}
	if err != nil {
		p.store.Rollback()
	}
	return err
}

func (p *Pool) credit(account, amount uint64) error {
	balance, err := p.store.GetBalance(account)
	if err != nil {
		return err
	} else if balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: account %v", ErrBalanceOverflow, account)
	}
	return p.store.PutBalance(account, balance+amount)
}

func (p *Pool) debit(account, amount uint64) error {
	balance, err := p.store.GetBalance(account)
	if err != nil {
		return err
	} else if balance < amount {
		return fmt.Errorf("account %v has balance %v, cannot debit %v", account, balance, amount)
	}
	return p.store.PutBalance(account, balance-amount)
}

// Fund credits `amount` to `account` out of thin air. It is meant for
// genesis allocations.
func (p *Pool) Fund(account, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.finish(p.credit(account, amount)); err != nil {
		return err
	}
	p.log.Info().Uint64("account", account).Uint64("amount", amount).Msg("account funded")
	return nil
}

// Deposit moves the deposit amount from `sender` to the custodian and inserts
// the commitment to `secret` into the tree. The returned note must be kept to
// withdraw the funds to `recipient` later.
func (p *Pool) Deposit(sender, secret, topic, recipient uint64) (*Note, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	note, err := p.deposit(sender, secret, topic, recipient)
	if err = p.finish(err); err != nil {
		if IsPolicyError(err) {
			p.log.Warn().Err(err).Uint64("sender", sender).Msg("deposit rejected")
		} else {
			p.log.Error().Err(err).Uint64("sender", sender).Msg("deposit failed")
		}
		return nil, err
	}
	p.log.Info().Uint64("index", note.Path.Index).Msg("deposit accepted")
	return note, nil
}

func (p *Pool) deposit(sender, secret, topic, recipient uint64) (*Note, error) {
	balance, err := p.store.GetBalance(sender)
	if err != nil {
		return nil, err
	} else if balance <= p.amount {
		return nil, ErrInsufficientBalance
	}
	nullifier := commitments.Nullify(p.cs, secret, topic)
	if _, ok, err := p.store.GetNullifier(nullifier); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrDuplicateNullifier
	}

	index, err := p.tree.Insert(commitments.Commit(p.cs, secret))
	if err != nil {
		return nil, err
	} else if err := p.store.PutNullifier(nullifier, false); err != nil {
		return nil, err
	}
	root, err := p.tree.Root()
	if err != nil {
		return nil, err
	} else if err := p.store.AppendRoot(root); err != nil {
		return nil, err
	}
	if err := p.debit(sender, p.amount); err != nil {
		return nil, err
	} else if err := p.credit(p.custodian, p.amount); err != nil {
		return nil, err
	}
	path, err := p.tree.Path(index)
	if err != nil {
		return nil, err
	}
	p.log.Debug().Uint64("index", index).Stringer("root", root).Msg("commitment inserted")

	return &Note{Secret: secret, Topic: topic, Recipient: recipient, Path: path}, nil
}

// Withdraw spends the nullifier of `note` and moves the deposit amount from
// the custodian to the note's recipient. The note's path may lead to any root
// the tree has ever had.
func (p *Pool) Withdraw(note *Note) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.finish(p.withdraw(note))
	if err != nil {
		if IsPolicyError(err) {
			p.log.Warn().Err(err).Msg("withdrawal rejected")
		} else {
			p.log.Error().Err(err).Msg("withdrawal failed")
		}
		return err
	}
	p.log.Info().Uint64("recipient", note.Recipient).Msg("withdrawal accepted")
	return nil
}

func (p *Pool) withdraw(note *Note) error {
	if err := note.Validate(); err != nil {
		return err
	}

	nullifier := note.Nullifier(p.cs)
	spent, ok, err := p.store.GetNullifier(nullifier)
	if err != nil {
		return err
	} else if spent {
		return ErrNullifierSpent
	} else if !ok {
		return ErrUnknownNullifier
	}
	if !commitments.Verify(p.cs, note.Secret, note.Path.Leaf) {
		return ErrCommitmentMismatch
	}
	root := note.Path.ConstructRoot(p.cs)
	if known, err := p.store.HasRoot(root); err != nil {
		return err
	} else if !known {
		return ErrUnknownRoot
	}

	custody, err := p.store.GetBalance(p.custodian)
	if err != nil {
		return err
	} else if custody < p.amount {
		return ErrCustodyShortfall
	}
	if err := p.debit(p.custodian, p.amount); err != nil {
		return err
	} else if err := p.credit(note.Recipient, p.amount); err != nil {
		return err
	}
	return p.store.PutNullifier(nullifier, true)
}

// Suite returns the hash suite the pool was created with.
func (p *Pool) Suite() suites.Suite { return p.cs }

// Amount returns the fixed denomination of every deposit.
func (p *Pool) Amount() uint64 { return p.amount }

// Custodian returns the account that holds deposited funds until withdrawal.
func (p *Pool) Custodian() uint64 { return p.custodian }

// Balance returns the balance of `account`. Unknown accounts hold zero.
func (p *Pool) Balance(account uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.GetBalance(account)
}

// Balances returns every account with a recorded balance.
func (p *Pool) Balances() (map[uint64]uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.ListBalances()
}

// RootHistory returns every root produced by a deposit, oldest first.
func (p *Pool) RootHistory() ([]suites.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.GetRoots()
}

// RootCount returns the length of the root history.
func (p *Pool) RootCount() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.RootCount()
}

// IsKnownRoot returns whether `root` was ever the root of the accumulator
// after a deposit.
func (p *Pool) IsKnownRoot(root suites.Hash) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.HasRoot(root)
}

// NullifierStatus returns whether a nullifier has been spent, and whether it
// was registered by a deposit at all.
func (p *Pool) NullifierStatus(nullifier suites.Hash) (spent, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.GetNullifier(nullifier)
}

// Nullifiers returns every registered nullifier and whether it is spent.
func (p *Pool) Nullifiers() (map[suites.Hash]bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.ListNullifiers()
}

// Root returns the current root of the accumulator.
func (p *Pool) Root() (suites.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree.Root()
}

// Size returns the number of deposits made.
func (p *Pool) Size() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree.Size()
}

// Path returns a fresh inclusion path for the leaf at `index`, against the
// current root.
func (p *Pool) Path(index uint64) (*accumulator.Path, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree.Path(index)
}
