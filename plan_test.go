package settle

import (
	"errors"
	"testing"
	"time"

	"github.com/etnz/settle/date"
	"gopkg.in/yaml.v3"
)

func TestPlan_Amounts(t *testing.T) {
	p := NewPlan("1 cuota", "CARD")
	amount := ARS(1000)
	if got := p.Fee(amount); !got.Equal(ARS(18)) {
		t.Errorf("Fee() = %v, want 18", got.Decimal())
	}
	if got := p.FinancialCost(amount); !got.Equal(ARS(58.7)) {
		t.Errorf("FinancialCost() = %v, want 58.7", got.Decimal())
	}
	if got := p.EstimatedAmount(amount); !got.Equal(ARS(923.3)) {
		t.Errorf("EstimatedAmount() = %v, want 923.3", got.Decimal())
	}
}

func TestPlan_Surcharge(t *testing.T) {
	tests := []struct {
		name   string
		coef   float64
		factor int
		base   float64
		want   float64
	}{
		{"no surcharge", 1, 10, 1234, 0},
		{"rounded to tens", 1.15, 10, 1234, 190},
		{"no rounding", 1.15, 1, 1234, 185.1},
		{"rounded to hundreds", 1.2, 100, 1234, 200},
		{"half to even", 1.5, 10, 50, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan("x", "CARD")
			p.SurchargeCoefficient, p.RoundingFactor = tt.coef, tt.factor
			if got := p.Surcharge(ARS(tt.base)); !got.Equal(ARS(tt.want)) {
				t.Errorf("Surcharge(%v) = %v, want %v", tt.base, got.Decimal(), tt.want)
			}
		})
	}
}

func TestPlan_SurchargeLine(t *testing.T) {
	p := NewPlan("x", "CARD")
	p.SurchargeCoefficient = 1.15
	// a sale of 1234 that already carries a surcharge of 190 gets the same one.
	if got := p.SurchargeLine(ARS(1424), ARS(190)); !got.Equal(ARS(190)) {
		t.Errorf("SurchargeLine() = %v, want 190", got.Decimal())
	}
}

func TestPlan_AccreditationDate(t *testing.T) {
	friday := date.New(2025, time.March, 7)
	p := NewPlan("x", "CARD")

	cal, _ := NewCalendar()
	if got, want := p.AccreditationDate(cal, friday), date.New(2025, time.March, 11); got != want {
		t.Errorf("AccreditationDate() = %s, want %s", got, want)
	}

	cal, err := NewCalendar(Holiday{Name: "Carnaval", Date: date.New(2025, time.March, 10), Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := p.AccreditationDate(cal, friday), date.New(2025, time.March, 12); got != want {
		t.Errorf("AccreditationDate() with holiday = %s, want %s", got, want)
	}
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Plan)
		ok     bool
	}{
		{"defaults", func(*Plan) {}, true},
		{"zero days", func(p *Plan) { p.AccreditationDays = 0 }, false},
		{"negative fee", func(p *Plan) { p.FeePercentage = -1 }, false},
		{"zero coefficient", func(p *Plan) { p.SurchargeCoefficient = 0 }, false},
		{"bad rounding", func(p *Plan) { p.RoundingFactor = 5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan("x", "CARD")
			tt.modify(&p)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want no error", err)
			}
			var verr *ValidationError
			if !tt.ok && !errors.As(err, &verr) {
				t.Errorf("Validate() = %v, want a ValidationError", err)
			}
		})
	}
}

func TestPlan_UnmarshalYAML(t *testing.T) {
	var p Plan
	if err := yaml.Unmarshal([]byte("name: 3 cuotas\njournal: CARD\nfeePercentage: 2.5\n"), &p); err != nil {
		t.Fatal(err)
	}
	if p.FeePercentage != 2.5 || p.AccreditationDays != 2 || p.RoundingFactor != 10 || !p.Active {
		t.Errorf("UnmarshalYAML() = %+v, want defaults with a 2.5%% fee", p)
	}
}
