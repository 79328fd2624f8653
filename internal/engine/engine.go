package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/proofslot/internal/ir"
	"github.com/roach88/proofslot/internal/record"
	"github.com/roach88/proofslot/internal/store"
)

// Submission is one call to Handler.Submit.
//
// Submitter and Payer come from the transport's authentication context, not
// from the proof payload. An empty Payer means the submitter pays.
type Submission struct {
	Submitter []byte
	Payer     []byte
	Proof     []byte
	EventType ir.EventType
}

// Receipt describes a successful submission.
type Receipt struct {
	SubmissionID string
	Address      ir.Address
	Bump         uint8
	Created      bool
	RentCharged  uint64
	Record       ir.Record
}

// Stats counts submissions since the handler was created.
type Stats struct {
	Accepted int64
	Rejected int64
	Created  int64
}

// Handler is the submission entry point.
//
// Submit derives the submitter's slot, opens or creates it, and writes the
// new record inside one backend transaction. Either all of it commits or
// the slot, the payer balance, and the account set are left as they were.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - a submission holds the lock of its slot address and of its payer,
//     taken in byte order, for the whole read-modify-write
//   - submissions sharing neither slot nor payer run concurrently
//
// Handler holds no per-submission state between calls.
type Handler struct {
	records  *record.Store
	ids      IDGenerator
	notifier Notifier
	logger   *slog.Logger

	locks *lockTable

	accepted *xsync.Counter
	rejected *xsync.Counter
	created  *xsync.Counter
}

// Option allows configuration of handler parameters.
type Option func(*Handler)

// WithIDGenerator sets the submission ID generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(h *Handler) {
		h.ids = g
	}
}

// WithNotifier sets the success notifier.
// Default: LogNotifier using the handler's logger.
func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		h.notifier = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// New creates a Handler over records.
func New(records *record.Store, opts ...Option) *Handler {
	h := &Handler{
		records:  records,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		locks:    newLockTable(),
		accepted: xsync.NewCounter(),
		rejected: xsync.NewCounter(),
		created:  xsync.NewCounter(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.notifier == nil {
		h.notifier = LogNotifier{Logger: h.logger}
	}
	return h
}

// Records returns the record store the handler writes to.
func (h *Handler) Records() *record.Store {
	return h.records
}

// Stats returns a snapshot of the submission counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Accepted: h.accepted.Value(),
		Rejected: h.rejected.Value(),
		Created:  h.created.Value(),
	}
}

// Submit records proof and event type in the submitter's slot.
//
// The slot is created on first use, charging the payer rent for its full
// capacity. Later submissions overwrite the record in place and charge
// nothing. The stored timestamp is taken from the record store's clock.
//
// Returns a *SubmissionError for every rejection; the slot is unchanged
// whenever an error is returned.
func (h *Handler) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	submitter, err := ir.IdentityFromBytes(sub.Submitter)
	if err != nil {
		return nil, h.reject(hex.EncodeToString(sub.Submitter), ir.Address{}, fmt.Errorf("submitter: %w", err))
	}
	payer := submitter
	if len(sub.Payer) > 0 {
		if payer, err = ir.IdentityFromBytes(sub.Payer); err != nil {
			return nil, h.reject(submitter.String(), ir.Address{}, fmt.Errorf("payer: %w", err))
		}
	}

	addr, bump, err := h.records.DeriveAddress(submitter[:])
	if err != nil {
		return nil, h.reject(submitter.String(), ir.Address{}, err)
	}

	release := h.locks.acquire(lockKey(addr), lockKey(payer))
	defer release()

	var rec ir.Record
	var created bool
	err = h.records.Backend().Update(ctx, func(txn store.Txn) error {
		sl, c, err := h.records.OpenOrCreate(txn, addr, submitter, payer)
		if err != nil {
			return err
		}
		created = c
		rec, err = h.records.Write(sl, sub.Proof, sub.EventType)
		return err
	})
	if err != nil {
		return nil, h.reject(submitter.String(), addr, err)
	}

	receipt := &Receipt{
		SubmissionID: h.ids.Generate(),
		Address:      addr,
		Bump:         bump,
		Created:      created,
		Record:       rec,
	}
	if created {
		receipt.RentCharged = h.records.RentFor(ir.Capacity)
		h.created.Inc()
	}
	h.accepted.Inc()

	h.notifier.ProofSubmitted(ctx, Notification{
		SubmissionID: receipt.SubmissionID,
		Submitter:    submitter,
		Address:      addr,
		EventType:    rec.EventType,
		Timestamp:    rec.Timestamp,
		Created:      created,
	})
	return receipt, nil
}

// reject counts and logs a failed submission and wraps err for the caller.
func (h *Handler) reject(submitter string, addr ir.Address, err error) error {
	h.rejected.Inc()
	err = newSubmissionError(submitter, addr, err)
	h.logger.Warn("submission rejected",
		"submitter", submitter,
		"code", string(ir.CodeOf(err)),
		"error", err,
	)
	return err
}
