package cmd

import (
	"testing"
	"text/template"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
)

// ARS is a helper for test to create pesos from const
func ARS(v float64) settle.Money { return settle.M(v, "ARS") }

func newCollect(on date.Date) settle.Command {
	return settle.NewCollect(on, "CARD", "1 cuota", "Consumidor Final", ARS(100), "", "")
}

func TestGeneratePeriods(t *testing.T) {
	tests := []struct {
		name          string
		commands      []settle.Command
		wantWeekly    int
		wantMonthly   int
		wantQuarterly int
		wantYearly    int
	}{
		{
			name: "empty ledger",
		},
		{
			name:          "single day",
			commands:      []settle.Command{newCollect(date.MustParse("2025-08-15"))},
			wantWeekly:    1,
			wantMonthly:   1,
			wantQuarterly: 1,
			wantYearly:    1,
		},
		{
			name: "multi-week, single-month",
			commands: []settle.Command{
				newCollect(date.MustParse("2025-08-10")),
				newCollect(date.MustParse("2025-08-25")),
			},
			wantWeekly:    4, // W32, W33, W34, W35
			wantMonthly:   1,
			wantQuarterly: 1,
			wantYearly:    1,
		},
		{
			name: "cross-year boundary",
			commands: []settle.Command{
				newCollect(date.MustParse("2025-01-15")),
				newCollect(date.MustParse("2024-12-15")),
			},
			wantWeekly:    6, // W50, W51, W52 (2024), W1, W2, W3 (2025)
			wantMonthly:   2,
			wantQuarterly: 2,
			wantYearly:    2,
		},
		{
			name: "full year",
			commands: []settle.Command{
				newCollect(date.MustParse("2023-01-01")),
				newCollect(date.MustParse("2023-12-31")),
			},
			wantWeekly:    53,
			wantMonthly:   12,
			wantQuarterly: 4,
			wantYearly:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := settle.NewLedger()
			ledger.Append(tt.commands...)

			first, last := ledgerSpan(ledger)
			ranges := generatePeriods(first, last)

			var weekly, monthly, quarterly, yearly int
			for _, r := range ranges {
				p, ok := r.Period()
				if !ok {
					continue
				}
				switch p {
				case date.Weekly:
					weekly++
				case date.Monthly:
					monthly++
				case date.Quarterly:
					quarterly++
				case date.Yearly:
					yearly++
				}
			}

			if tt.wantWeekly != weekly {
				t.Errorf("generatePeriods() got %d weekly ranges, want %d", weekly, tt.wantWeekly)
			}
			if tt.wantMonthly != monthly {
				t.Errorf("generatePeriods() got %d monthly ranges, want %d", monthly, tt.wantMonthly)
			}
			if tt.wantQuarterly != quarterly {
				t.Errorf("generatePeriods() got %d quarterly ranges, want %d", quarterly, tt.wantQuarterly)
			}
			if tt.wantYearly != yearly {
				t.Errorf("generatePeriods() got %d yearly ranges, want %d", yearly, tt.wantYearly)
			}
		})
	}
}

func TestRenderFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		template string
		task     reportTask
		want     string
		wantErr  bool
	}{
		{
			name:     "basic template",
			template: "---\ntitle: {{.Report}} for {{.Period.Identifier}}\n---",
			task:     reportTask{Report: "dashboard", Period: date.NewRange(date.MustParse("2025-01-01"), date.Monthly)},
			want:     "---\ntitle: dashboard for 2025-01\n---",
		},
		{
			name: "api",
			template: `
{{.Report}}: The type of report.
{{.Period.From}}: The start date of the report.
{{.Period.To}}: The end date of the report.
{{.Period.Name}}: The period name.
{{.Period.To.Format "January 06"}}: A formatted string of the end date.`,
			task: reportTask{Report: "accreditations", Period: date.NewRange(date.MustParse("2025-01-01"), date.Weekly)},
			want: `
accreditations: The type of report.
2024-12-30: The start date of the report.
2025-01-05: The end date of the report.
weekly: The period name.
January 25: A formatted string of the end date.`,
		},
		{
			name:     "empty template",
			template: "",
			task:     reportTask{Report: "dashboard", Period: date.NewRange(date.MustParse("2025-01-01"), date.Yearly)},
			want:     "",
		},
		{
			name:     "template with error",
			template: "{{.NonExistentField}}",
			task:     reportTask{Report: "dashboard", Period: date.NewRange(date.MustParse("2025-01-01"), date.Yearly)},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := template.New("test").Parse(tt.template)
			if err != nil {
				t.Fatalf("failed to parse template: %v", err)
			}

			got, err := renderFrontMatter(tpl, tt.task)
			if (err != nil) != tt.wantErr {
				t.Errorf("renderFrontMatter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("renderFrontMatter() got = %v, want %v", got, tt.want)
			}
		})
	}
}
