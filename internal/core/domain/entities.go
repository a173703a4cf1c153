package domain

// LoanStatus represents the lifecycle state of a loan. Transitions are
// one-directional: NEW moves to APPROVED or REJECTED and terminal states
// never change.
type LoanStatus string

const (
	LoanStatusNew      LoanStatus = "NEW"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
)

// IsTerminal reports whether the status admits no further transition.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusApproved || s == LoanStatusRejected
}

// IsDecision reports whether the status is a valid decision outcome.
func (s LoanStatus) IsDecision() bool {
	return s == LoanStatusApproved || s == LoanStatusRejected
}

// MinPrincipal is the smallest loan principal the platform accepts.
const MinPrincipal = 10000.0

// Quote is the deterministic pricing of a loan request: tiered annual
// interest, the equated monthly installment, and the total repayable amount.
type Quote struct {
	Principal float64
	Months    int
	Interest  float64
	EMI       float64
	Amount    float64
}
