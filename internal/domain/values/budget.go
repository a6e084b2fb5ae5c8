package values

import (
	"encoding/json"
	"fmt"
)

// BudgetRange is the inclusive price band a project owner will consider.
// Every admitted bid must fall inside it.
type BudgetRange struct {
	min Money
	max Money
}

// NewBudgetRange creates a validated budget range
func NewBudgetRange(min, max Money) (BudgetRange, error) {
	if min.Currency() != max.Currency() {
		return BudgetRange{}, fmt.Errorf("budget bounds must share a currency: %s vs %s", min.Currency(), max.Currency())
	}
	if !min.IsPositive() {
		return BudgetRange{}, fmt.Errorf("budget minimum must be positive")
	}
	if max.LessThan(min) {
		return BudgetRange{}, fmt.Errorf("budget maximum %s is below minimum %s", max, min)
	}

	return BudgetRange{min: min, max: max}, nil
}

// MustNewBudgetRange creates a budget range and panics on error (for fixtures/tests)
func MustNewBudgetRange(min, max Money) BudgetRange {
	r, err := NewBudgetRange(min, max)
	if err != nil {
		panic(err)
	}
	return r
}

// Min returns the lower bound
func (r BudgetRange) Min() Money {
	return r.min
}

// Max returns the upper bound
func (r BudgetRange) Max() Money {
	return r.max
}

// Contains reports whether price lies within [min, max]
func (r BudgetRange) Contains(price Money) bool {
	if price.Currency() != r.min.Currency() {
		return false
	}
	return price.Compare(r.min) >= 0 && price.Compare(r.max) <= 0
}

// IsZero reports whether the range was never set
func (r BudgetRange) IsZero() bool {
	return r.min.Currency() == ""
}

func (r BudgetRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.min, r.max)
}

func (r BudgetRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Min Money `json:"min"`
		Max Money `json:"max"`
	}{Min: r.min, Max: r.max})
}

func (r *BudgetRange) UnmarshalJSON(data []byte) error {
	var temp struct {
		Min Money `json:"min"`
		Max Money `json:"max"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	rng, err := NewBudgetRange(temp.Min, temp.Max)
	if err != nil {
		return err
	}

	*r = rng
	return nil
}
