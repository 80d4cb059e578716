package settle

import (
	"fmt"

	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Plan is a credit card plan: how long the processor takes to pay a coupon,
// and what it retains.
type Plan struct {
	Name                    string  `json:"name" yaml:"name" validate:"required"`
	Journal                 string  `json:"journal" yaml:"journal" validate:"required"`
	AccreditationDays       int     `json:"accreditationDays" yaml:"accreditationDays" validate:"gt=0"`
	FeePercentage           float64 `json:"feePercentage" yaml:"feePercentage" validate:"gte=0"`
	FinancialCostPercentage float64 `json:"financialCostPercentage" yaml:"financialCostPercentage" validate:"gte=0"`
	SurchargeCoefficient    float64 `json:"surchargeCoefficient" yaml:"surchargeCoefficient" validate:"gt=0"`
	RoundingFactor          int     `json:"roundingFactor" yaml:"roundingFactor" validate:"oneof=1 10 100 1000"`
	Active                  bool    `json:"active" yaml:"active"`

	FeeAccount           string `json:"feeAccount,omitempty" yaml:"feeAccount"`
	FinancialCostAccount string `json:"financialCostAccount,omitempty" yaml:"financialCostAccount"`
	VATAccount           string `json:"vatAccount,omitempty" yaml:"vatAccount"`
	GrossIncomeAccount   string `json:"grossIncomeAccount,omitempty" yaml:"grossIncomeAccount"`
}

// NewPlan returns a plan with the usual defaults.
func NewPlan(name, journal string) Plan {
	return Plan{
		Name:                    name,
		Journal:                 journal,
		AccreditationDays:       2,
		FeePercentage:           1.8,
		FinancialCostPercentage: 5.87,
		SurchargeCoefficient:    1,
		RoundingFactor:          10,
		Active:                  true,
	}
}

// UnmarshalYAML starts from the defaults, so that a settings file only lists
// what differs.
func (p *Plan) UnmarshalYAML(value *yaml.Node) error {
	type plain Plan
	v := plain(NewPlan("", ""))
	if err := value.Decode(&v); err != nil {
		return err
	}
	*p = Plan(v)
	return nil
}

// Validate checks the plan constraints.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return &ValidationError{Subject: fmt.Sprintf("plan %q", p.Name), Err: err}
	}
	return nil
}

// DisplayName is the journal and plan names.
func (p Plan) DisplayName() string { return p.Journal + " - " + p.Name }

func (p Plan) fee() Percent           { return Pct(p.FeePercentage) }
func (p Plan) financialCost() Percent { return Pct(p.FinancialCostPercentage) }

// Fee returns the processor fee retained on amount.
func (p Plan) Fee(amount Money) Money { return amount.MulPercent(p.fee()) }

// FinancialCost returns the financial cost retained on amount.
func (p Plan) FinancialCost(amount Money) Money { return amount.MulPercent(p.financialCost()) }

// EstimatedAmount returns amount minus the fee and the financial cost.
func (p Plan) EstimatedAmount(amount Money) Money {
	return amount.Sub(p.Fee(amount)).Sub(p.FinancialCost(amount))
}

// Surcharge returns the surcharge to add to a sale of base amount. It is
// rounded half to even to a multiple of the rounding factor.
func (p Plan) Surcharge(base Money) Money {
	coef := decimal.NewFromFloat(p.SurchargeCoefficient).Sub(decimal.NewFromInt(1))
	s := base.Decimal().Mul(coef)
	if p.RoundingFactor > 1 {
		f := decimal.NewFromInt(int64(p.RoundingFactor))
		s = s.Div(f).RoundBank(0).Mul(f)
	}
	return M(s, base.Currency())
}

// SurchargeLine returns the surcharge for a sale whose total already includes
// an existingSurcharge.
func (p Plan) SurchargeLine(saleTotal, existingSurcharge Money) Money {
	return p.Surcharge(saleTotal.Sub(existingSurcharge))
}

// AccreditationDate returns the estimated day the processor pays a coupon
// collected on collection.
func (p Plan) AccreditationDate(cal *Calendar, collection date.Date) date.Date {
	return cal.AddBusinessDays(collection, p.AccreditationDays)
}
