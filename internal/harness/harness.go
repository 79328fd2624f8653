package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/proofslot/internal/engine"
	"github.com/roach88/proofslot/internal/ir"
	"github.com/roach88/proofslot/internal/record"
	"github.com/roach88/proofslot/internal/store"
	"github.com/roach88/proofslot/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios through the real submission handler with a fake clock
// and sequential submission IDs.
type Harness struct {
	records *record.Store
	handler *engine.Handler
	clock   *testutil.FakeClock
	logger  *slog.Logger
	seq     int64
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory backend for isolation.
//
// Execution flow:
// 1. Create fresh memory backend, record store, and handler
// 2. Execute setup funding
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the final state
//
// Rejected submissions are outcomes, not errors. Run returns an error only
// when a step cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	backend := store.NewMemory()
	defer backend.Close()

	start := scenario.Clock
	if start == 0 {
		start = DefaultClock
	}
	clock := testutil.NewFakeClock(start)
	logger := slog.New(slog.DiscardHandler)

	opts := []record.Option{record.WithClock(clock), record.WithLogger(logger)}
	if scenario.Namespace != "" {
		opts = append(opts, record.WithNamespace(scenario.Namespace))
	}
	if scenario.RentPerByte != nil {
		opts = append(opts, record.WithRentPerByte(*scenario.RentPerByte))
	}
	records := record.New(backend, opts...)

	h := &Harness{
		records: records,
		handler: engine.New(records,
			engine.WithLogger(logger),
			engine.WithIDGenerator(testutil.NewSequentialIDGenerator("sub")),
		),
		clock:  clock,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		if err := h.fund(ctx, step.Fund, step.Lamports, result); err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
	}

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Records: records, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) next() int64 {
	h.seq++
	return h.seq
}

func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	switch {
	case step.Fund != "":
		return h.fund(ctx, step.Fund, step.Lamports, result)
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		result.Trace = append(result.Trace, TraceEvent{
			Seq:   h.next(),
			Type:  EventAdvance,
			Clock: h.clock.Now().Unix(),
		})
		return nil
	default:
		return h.submit(ctx, i, step, result)
	}
}

func (h *Harness) fund(ctx context.Context, name string, lamports uint64, result *Result) error {
	bal, err := h.records.Fund(ctx, testutil.Identity(name), lamports)
	if err != nil {
		return err
	}
	result.Trace = append(result.Trace, TraceEvent{
		Seq:      h.next(),
		Type:     EventFund,
		Identity: name,
		Lamports: lamports,
		Balance:  bal,
	})
	return nil
}

func (h *Harness) submit(ctx context.Context, i int, step FlowStep, result *Result) error {
	proof, err := step.ProofBytes()
	if err != nil {
		return err
	}
	var eventType ir.EventType
	if step.EventType != "" {
		if eventType, err = ir.ParseEventType(step.EventType); err != nil {
			return err
		}
	}

	submitter := testutil.Identity(step.Submit)
	sub := engine.Submission{
		Submitter: submitter[:],
		Proof:     proof,
		EventType: eventType,
	}
	if step.Payer != "" {
		payer := testutil.Identity(step.Payer)
		sub.Payer = payer[:]
	}

	ev := TraceEvent{
		Seq:       h.next(),
		Type:      EventSubmit,
		Submitter: step.Submit,
		Payer:     step.Payer,
		ProofLen:  len(proof),
		EventType: eventType,
	}

	receipt, err := h.handler.Submit(ctx, sub)
	switch {
	case err == nil:
		ev.Outcome = OutcomeOK
		ev.SubmissionID = receipt.SubmissionID
		ev.Created = receipt.Created
		ev.RentCharged = receipt.RentCharged
		ev.Timestamp = receipt.Record.Timestamp
	case ir.CodeOf(err) != "":
		ev.Outcome = string(ir.CodeOf(err))
	default:
		return err
	}
	result.Trace = append(result.Trace, ev)

	if step.Expect == nil {
		return nil
	}
	if ev.Outcome != step.Expect.Outcome {
		result.AddError(fmt.Sprintf("flow[%d]: submit %s: outcome %s, want %s", i, step.Submit, ev.Outcome, step.Expect.Outcome))
	}
	if step.Expect.Created != nil && ev.Created != *step.Expect.Created {
		result.AddError(fmt.Sprintf("flow[%d]: submit %s: created %t, want %t", i, step.Submit, ev.Created, *step.Expect.Created))
	}

	h.logger.Info("flow step validated",
		"step", i,
		"submitter", step.Submit,
		"expected_outcome", step.Expect.Outcome,
		"actual_outcome", ev.Outcome,
	)
	return nil
}
