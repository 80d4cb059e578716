package settle

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on concurrent or contradictory updates.
	ErrConflict = errors.New("conflict")
	// ErrUnbalanced is returned when debits and credits differ.
	ErrUnbalanced = errors.New("unbalanced entry")
	// ErrInvalid is returned when an operation's preconditions are not met.
	ErrInvalid = errors.New("invalid operation")
)

// TransitionError reports a state change that the entity's state machine does
// not allow.
type TransitionError struct {
	Entity string
	ID     string
	From   fmt.Stringer
	To     fmt.Stringer
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %q cannot go from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// Is makes every TransitionError match ErrInvalid.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalid }

// state is the set of constraints shared by all state enums.
type state interface {
	~uint8
	fmt.Stringer
}

// machine holds the allowed transitions of a state enum and its names.
type machine[S state] struct {
	names []string
	edges map[S][]S
}

func (m machine[S]) allows(from, to S) bool { return slices.Contains(m.edges[from], to) }

func (m machine[S]) name(s S) string {
	if int(s) < len(m.names) {
		return m.names[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

func (m machine[S]) parse(entity, str string) (S, error) {
	for i, n := range m.names {
		if n == str {
			return S(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s state %q", entity, str)
}

// AccreditationState is the lifecycle state of an Accreditation.
type AccreditationState uint8

const (
	AccreditationDraft AccreditationState = iota
	AccreditationPending
	AccreditationCredited
	AccreditationReconciled
	AccreditationReversed
)

var accreditationMachine = machine[AccreditationState]{
	names: []string{"draft", "pending", "credited", "reconciled", "reversed"},
	edges: map[AccreditationState][]AccreditationState{
		AccreditationDraft:      {AccreditationPending},
		AccreditationPending:    {AccreditationDraft, AccreditationCredited},
		AccreditationCredited:   {AccreditationPending, AccreditationDraft, AccreditationReconciled},
		AccreditationReconciled: {AccreditationPending, AccreditationDraft, AccreditationCredited},
	},
}

func (s AccreditationState) String() string { return accreditationMachine.name(s) }

// CanTransition reports whether s may change to 'to'.
func (s AccreditationState) CanTransition(to AccreditationState) bool {
	return accreditationMachine.allows(s, to)
}

func (s AccreditationState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *AccreditationState) UnmarshalText(b []byte) (err error) {
	*s, err = accreditationMachine.parse("accreditation", string(b))
	return
}

// BatchState is the lifecycle state of a BatchTransfer.
type BatchState uint8

const (
	BatchDraft BatchState = iota
	BatchConfirmed
	BatchTransferred
	BatchReconciled
	BatchCancelled
)

var batchMachine = machine[BatchState]{
	names: []string{"draft", "confirmed", "transferred", "reconciled", "cancelled"},
	edges: map[BatchState][]BatchState{
		BatchDraft:       {BatchConfirmed, BatchCancelled},
		BatchConfirmed:   {BatchTransferred, BatchDraft, BatchCancelled},
		BatchTransferred: {BatchReconciled, BatchDraft},
		BatchReconciled:  {BatchTransferred},
		BatchCancelled:   {BatchDraft},
	},
}

func (s BatchState) String() string { return batchMachine.name(s) }

// CanTransition reports whether s may change to 'to'.
func (s BatchState) CanTransition(to BatchState) bool { return batchMachine.allows(s, to) }

// Locked reports whether batches in this state cannot be edited or deleted.
func (s BatchState) Locked() bool { return s == BatchConfirmed || s == BatchTransferred }

func (s BatchState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *BatchState) UnmarshalText(b []byte) (err error) {
	*s, err = batchMachine.parse("batch", string(b))
	return
}

// DeductionState is the lifecycle state of a TaxDeduction.
type DeductionState uint8

const (
	DeductionDraft DeductionState = iota
	DeductionConfirmed
	DeductionPosted
	DeductionCancelled
)

var deductionMachine = machine[DeductionState]{
	names: []string{"draft", "confirmed", "posted", "cancelled"},
	edges: map[DeductionState][]DeductionState{
		DeductionDraft:     {DeductionConfirmed, DeductionCancelled},
		DeductionConfirmed: {DeductionPosted, DeductionCancelled},
		DeductionCancelled: {DeductionDraft},
	},
}

func (s DeductionState) String() string { return deductionMachine.name(s) }

// CanTransition reports whether s may change to 'to'.
func (s DeductionState) CanTransition(to DeductionState) bool {
	return deductionMachine.allows(s, to)
}

func (s DeductionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *DeductionState) UnmarshalText(b []byte) (err error) {
	*s, err = deductionMachine.parse("deduction", string(b))
	return
}

// PaymentState is the lifecycle state of a Payment.
type PaymentState uint8

const (
	PaymentDraft PaymentState = iota
	PaymentInProcess
	PaymentPaid
	PaymentCancelled
)

var paymentMachine = machine[PaymentState]{
	names: []string{"draft", "in_process", "paid", "cancelled"},
	edges: map[PaymentState][]PaymentState{
		PaymentDraft:     {PaymentInProcess, PaymentCancelled},
		PaymentInProcess: {PaymentPaid, PaymentDraft, PaymentCancelled},
		PaymentPaid:      {PaymentInProcess, PaymentDraft, PaymentCancelled},
		PaymentCancelled: {PaymentDraft},
	},
}

func (s PaymentState) String() string { return paymentMachine.name(s) }

// CanTransition reports whether s may change to 'to'.
func (s PaymentState) CanTransition(to PaymentState) bool { return paymentMachine.allows(s, to) }

func (s PaymentState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *PaymentState) UnmarshalText(b []byte) (err error) {
	*s, err = paymentMachine.parse("payment", string(b))
	return
}

// ParsePaymentState parses the name of a payment state.
func ParsePaymentState(s string) (PaymentState, error) { return paymentMachine.parse("payment", s) }

// ParseBatchState parses the name of a batch state.
func ParseBatchState(s string) (BatchState, error) { return batchMachine.parse("batch", s) }

// ParseAccreditationState parses the name of an accreditation state.
func ParseAccreditationState(s string) (AccreditationState, error) {
	return accreditationMachine.parse("accreditation", s)
}
