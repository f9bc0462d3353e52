package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationStatus classifies the terminal outcome of one allocation run.
type AllocationStatus string

const (
	AllocationStatusOK       AllocationStatus = "ok"
	AllocationStatusSkipped  AllocationStatus = "skipped"
	AllocationStatusRejected AllocationStatus = "rejected"
	AllocationStatusError    AllocationStatus = "error"
)

// AllocationAction is the action the run took (or declined to take).
type AllocationAction string

const (
	AllocationActionBuy      AllocationAction = "BUY"
	AllocationActionSell     AllocationAction = "SELL"
	AllocationActionSkip     AllocationAction = "SKIP"
	AllocationActionRejected AllocationAction = "REJECTED"
	AllocationActionFailed   AllocationAction = "FAILED"
)

// AllocationResult is the structured outcome of a single allocation run. It
// is created once per invocation, never mutated afterwards, and is returned
// to the caller, persisted, and logged. Every run gets a fresh RequestID and
// the UTC timestamp captured at run start.
type AllocationResult struct {
	RequestID    string
	Status       AllocationStatus
	ExecutedAt   time.Time
	Action       AllocationAction
	OrderID      string
	Reason       string
	SlippagePct  decimal.Decimal
	ExpectedFill decimal.Decimal
}
