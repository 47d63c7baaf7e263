package domain

import (
	"strings"
	"time"
)

// RecordStatus is the lifecycle state of an ArbitrageRecord.
type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusInProgress RecordStatus = "in_progress"
	StatusCompleted  RecordStatus = "completed"
	StatusCancelled  RecordStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s RecordStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CountsTowardDailyTotal reports whether a record in this status consumes
// purchase-limit headroom.
func (s RecordStatus) CountsTowardDailyTotal() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// OpType is the kind of trade leg.
type OpType string

const (
	OpSubscribe OpType = "subscribe"
	OpRedeem    OpType = "redeem"
	OpBuy       OpType = "buy"
	OpSell      OpType = "sell"
)

// InitialOpType returns the opening leg for an arbitrage type.
func InitialOpType(t ArbType) OpType {
	if t == ArbPremium {
		return OpSubscribe
	}
	return OpBuy
}

// FinalOpType returns the closing leg for an arbitrage type.
func FinalOpType(t ArbType) OpType {
	if t == ArbPremium {
		return OpSell
	}
	return OpRedeem
}

// Operation is one leg of an arbitrage trade. Date is the trading calendar
// date in YYYY-MM-DD form.
type Operation struct {
	OpType    OpType    `json:"type"`
	Price     float64   `json:"price"`
	Shares    float64   `json:"shares"`
	Amount    float64   `json:"amount"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// ArbitrageRecord tracks one user-initiated arbitrage from opening to
// settlement.
type ArbitrageRecord struct {
	ID               string       `json:"id"`
	Owner            string       `json:"owner"`
	FundCode         string       `json:"fund_code"`
	FundName         string       `json:"fund_name"`
	Type             ArbType      `json:"arbitrage_type"`
	Status           RecordStatus `json:"status"`
	InitialOperation Operation    `json:"initial_operation"`
	FinalOperation   *Operation   `json:"final_operation,omitempty"`
	Profit           *float64     `json:"profit,omitempty"`
	ProfitRate       *float64     `json:"profit_rate,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewRecordParams are the caller-supplied fields of a new record.
type NewRecordParams struct {
	ID            string
	Owner         string
	FundCode      string
	FundName      string
	Type          ArbType
	InitialPrice  float64
	InitialShares float64
	InitialAmount float64
	InitialDate   string
	Now           time.Time
}

// NewArbitrageRecord validates p and returns a record in StatusInProgress.
// When InitialShares is zero it is derived from amount/price. An empty date
// defaults to the calendar date of p.Now.
func NewArbitrageRecord(p NewRecordParams) (ArbitrageRecord, error) {
	if strings.TrimSpace(p.Owner) == "" {
		return ArbitrageRecord{}, NewValidationError("owner", "is required")
	}
	if strings.TrimSpace(p.FundCode) == "" {
		return ArbitrageRecord{}, NewValidationError("fund_code", "is required")
	}
	if !p.Type.Valid() {
		return ArbitrageRecord{}, NewValidationError("arbitrage_type", "must be premium or discount")
	}
	if !(p.InitialPrice > 0) {
		return ArbitrageRecord{}, NewValidationError("initial_price", "must be greater than 0")
	}
	if !(p.InitialAmount > 0) {
		return ArbitrageRecord{}, NewValidationError("initial_amount", "must be greater than 0")
	}
	if p.InitialShares < 0 {
		return ArbitrageRecord{}, NewValidationError("initial_shares", "must not be negative")
	}

	date := p.InitialDate
	if date == "" {
		date = DateOnly(p.Now).Format(DateLayout)
	} else if _, err := ParseDate(date); err != nil {
		return ArbitrageRecord{}, NewValidationError("initial_date", "must be YYYY-MM-DD")
	}

	shares := p.InitialShares
	if shares == 0 {
		shares = p.InitialAmount / p.InitialPrice
	}

	return ArbitrageRecord{
		ID:       p.ID,
		Owner:    p.Owner,
		FundCode: p.FundCode,
		FundName: p.FundName,
		Type:     p.Type,
		Status:   StatusInProgress,
		InitialOperation: Operation{
			OpType:    InitialOpType(p.Type),
			Price:     p.InitialPrice,
			Shares:    shares,
			Amount:    p.InitialAmount,
			Date:      date,
			Timestamp: p.Now,
		},
		CreatedAt: p.Now,
		UpdatedAt: p.Now,
	}, nil
}

// CompleteParams are the caller-supplied fields for settling a record.
// Nil FinalShares and FinalAmount are derived from the initial operation; an
// empty date means today.
type CompleteParams struct {
	FinalPrice  float64
	FinalShares *float64
	FinalAmount *float64
	FinalDate   string
	Now         time.Time
}

// Complete settles an in-progress record and computes its profit. It returns
// a *StateConflictError without touching r when r is not in progress.
func (r *ArbitrageRecord) Complete(p CompleteParams) error {
	if r.Status != StatusInProgress {
		return &StateConflictError{RecordID: r.ID, Status: r.Status, Op: "complete"}
	}
	if !(p.FinalPrice > 0) {
		return NewValidationError("final_price", "must be greater than 0")
	}
	if p.FinalShares != nil && *p.FinalShares < 0 {
		return NewValidationError("final_shares", "must not be negative")
	}
	if p.FinalAmount != nil && *p.FinalAmount < 0 {
		return NewValidationError("final_amount", "must not be negative")
	}

	date := p.FinalDate
	if date == "" {
		date = DateOnly(p.Now).Format(DateLayout)
	} else if _, err := ParseDate(date); err != nil {
		return NewValidationError("final_date", "must be YYYY-MM-DD")
	}

	shares := r.InitialOperation.Shares
	if p.FinalShares != nil {
		shares = *p.FinalShares
	}
	amount := shares * p.FinalPrice
	if p.FinalAmount != nil {
		amount = *p.FinalAmount
	}

	profit := amount - r.InitialOperation.Amount
	var rate float64
	if r.InitialOperation.Amount > 0 {
		rate = profit / r.InitialOperation.Amount * 100
	}

	r.FinalOperation = &Operation{
		OpType:    FinalOpType(r.Type),
		Price:     p.FinalPrice,
		Shares:    shares,
		Amount:    amount,
		Date:      date,
		Timestamp: p.Now,
	}
	r.Profit = &profit
	r.ProfitRate = &rate
	r.Status = StatusCompleted
	r.UpdatedAt = p.Now
	return nil
}

// Cancel moves an in-progress record to cancelled. It returns a
// *StateConflictError without touching r when r is not in progress.
func (r *ArbitrageRecord) Cancel(now time.Time) error {
	if r.Status != StatusInProgress {
		return &StateConflictError{RecordID: r.ID, Status: r.Status, Op: "cancel"}
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now
	return nil
}

// CountsToward reports whether r contributes to owner's daily subscription
// total for fundCode on date.
func (r ArbitrageRecord) CountsToward(owner, fundCode, date string) bool {
	return r.Owner == owner &&
		r.FundCode == fundCode &&
		r.Type == ArbPremium &&
		r.InitialOperation.Date == date &&
		r.Status.CountsTowardDailyTotal()
}

// RecordFilter narrows record listings. Empty fields match everything.
type RecordFilter struct {
	Owner    string
	FundCode string
	Status   RecordStatus
	ListOpts
}

// Matches reports whether r passes the owner, fund and status filters.
func (f RecordFilter) Matches(r ArbitrageRecord) bool {
	if f.Owner != "" && r.Owner != f.Owner {
		return false
	}
	if f.FundCode != "" && r.FundCode != f.FundCode {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}
