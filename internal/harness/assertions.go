package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/proofslot/internal/ir"
	"github.com/roach88/proofslot/internal/record"
	"github.com/roach88/proofslot/internal/store"
	"github.com/roach88/proofslot/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSubmissions:\n")
		for _, ev := range e.Trace {
			if ev.Type == EventSubmit {
				fmt.Fprintf(&buf, "  [%d] %s %d bytes -> %s\n", ev.Seq, ev.Submitter, ev.ProofLen, ev.Outcome)
			}
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Records *record.Store
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Trace, a)
		case AssertRecord, AssertNoSlot, AssertBalance, AssertDistinctSlots, AssertSlotCount:
			if actx == nil || actx.Records == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a record store", i, a.Type)
				break
			}
			err = assertState(actx, a, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func assertState(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	switch a.Type {
	case AssertRecord:
		return assertRecord(actx, a, trace)
	case AssertNoSlot:
		return assertNoSlot(actx, a)
	case AssertBalance:
		return assertBalance(actx, a)
	case AssertDistinctSlots:
		return assertDistinctSlots(actx, a)
	default:
		return assertSlotCount(actx, a)
	}
}

// assertRecord checks the slot's record with subset semantics: only the
// fields named in Expect are compared.
func assertRecord(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	rec, _, err := actx.Records.LookupIdentity(actx.Ctx, testutil.Identity(a.Identity))
	if err != nil {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("slot for %s", a.Identity),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}

	actual := map[string]any{
		"proof":      hex.EncodeToString(rec.Proof),
		"event_type": rec.EventType,
		"timestamp":  rec.Timestamp,
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := a.Expect[key]
		if !recordValueEqual(want, actual[key]) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %v", a.Identity, key, want),
				Actual:   fmt.Sprintf("%s.%s = %v", a.Identity, key, actual[key]),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertNoSlot(actx *AssertionContext, a Assertion) error {
	_, _, err := actx.Records.LookupIdentity(actx.Ctx, testutil.Identity(a.Identity))
	if errors.Is(err, record.ErrSlotNotFound) {
		return nil
	}
	actual := "slot exists"
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     AssertNoSlot,
		Expected: fmt.Sprintf("no slot for %s", a.Identity),
		Actual:   actual,
	}
}

func assertBalance(actx *AssertionContext, a Assertion) error {
	bal, err := actx.Records.Balance(actx.Ctx, testutil.Identity(a.Identity))
	if err != nil {
		return err
	}
	if bal != *a.Lamports {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d lamports", a.Identity, *a.Lamports),
			Actual:   fmt.Sprintf("%d lamports", bal),
		}
	}
	return nil
}

func assertDistinctSlots(actx *AssertionContext, a Assertion) error {
	owners := make(map[ir.Address]string, len(a.Identities))
	for _, name := range a.Identities {
		id := testutil.Identity(name)
		addr, _, err := actx.Records.DeriveAddress(id[:])
		if err != nil {
			return err
		}
		if _, acc, err := actx.Records.Lookup(actx.Ctx, addr); err != nil || acc.Owner != id {
			return &AssertionError{
				Type:     AssertDistinctSlots,
				Expected: fmt.Sprintf("slot owned by %s", name),
				Actual:   fmt.Sprintf("lookup: %v", err),
			}
		}
		if other, ok := owners[addr]; ok {
			return &AssertionError{
				Type:     AssertDistinctSlots,
				Expected: fmt.Sprintf("%s and %s in different slots", other, name),
				Actual:   "same address",
			}
		}
		owners[addr] = name
	}
	return nil
}

func assertSlotCount(actx *AssertionContext, a Assertion) error {
	var n int
	err := actx.Records.Backend().View(actx.Ctx, func(txn store.Txn) error {
		var err error
		n, err = txn.CountAccounts()
		return err
	})
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertSlotCount,
			Expected: fmt.Sprintf("%d slots", *a.Count),
			Actual:   fmt.Sprintf("%d slots", n),
		}
	}
	return nil
}

func assertOutcomeCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == EventSubmit && ev.Outcome == a.Outcome {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d submissions with outcome %s", *a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d submissions", count),
			Trace:    trace,
		}
	}
	return nil
}

// recordValueEqual compares a YAML-decoded expectation with a record field.
// Event types may be given by catalog name or code.
func recordValueEqual(want, actual any) bool {
	switch got := actual.(type) {
	case string:
		s, ok := want.(string)
		return ok && strings.EqualFold(s, got)
	case ir.EventType:
		if s, ok := want.(string); ok {
			et, err := ir.ParseEventType(s)
			return err == nil && et == got
		}
		n, ok := toInt64(want)
		return ok && n == int64(got)
	case int64:
		n, ok := toInt64(want)
		return ok && n == got
	default:
		return false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
