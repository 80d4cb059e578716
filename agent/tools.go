package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	"github.com/etnz/settle/docs"
	"github.com/etnz/settle/renderer"
	"google.golang.org/genai"
)

// BookFunc loads the current state of the books.
type BookFunc func() (*settle.Book, error)

// Func implements a simple Function
type Func struct {
	// Declare this function
	Decl *genai.FunctionDeclaration
	// Call this function
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func errorResponse(id, name string, err error) *genai.FunctionResponse {
	return &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{"error": err.Error()}}
}

func outputResponse(id, name, output string) *genai.FunctionResponse {
	return &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{"output": output}}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q is not a string as expected but %T", name, v)
	}
	return s, nil
}

func parseDate(args map[string]any) (date.Date, error) {
	if _, ok := args["date"]; !ok {
		return date.Today(), nil
	}
	s, err := stringArg(args, "date")
	if err != nil {
		return date.Today(), err
	}
	d, err := date.Parse(s)
	if err != nil {
		return date.Today(), fmt.Errorf("argument 'date' must be a valid date got %q. Below is the doc about the format date\n\n%s ", s, must(docs.GetTopic("dates")))
	}
	return d, nil
}

// bookFunc declares a tool reading the books. The render function gets the
// loaded book and the call arguments.
func bookFunc(books BookFunc, decl *genai.FunctionDeclaration, render func(*settle.Book, map[string]any) (string, error)) *Func {
	return &Func{
		Decl: decl,
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			b, err := books()
			if err != nil {
				return errorResponse(id, decl.Name, fmt.Errorf("could not load the books: %w", err))
			}
			out, err := render(b, args)
			if err != nil {
				return errorResponse(id, decl.Name, err)
			}
			return outputResponse(id, decl.Name, out)
		},
	}
}

var markdownResponse = &genai.Schema{Type: genai.TypeString, Description: "A markdown document."}

// BookTools returns the functions the accountant uses to read the books.
func BookTools(books BookFunc) []Function {
	return []Function{
		bookFunc(books, &genai.FunctionDeclaration{
			Name: "PendingAccreditations",
			Description: `PendingAccreditations lists the card coupons not yet paid by the processor,
			with their amount, fee, financial cost, deductions, net amount and expected date.`,
			Response: markdownResponse,
		}, func(b *settle.Book, _ map[string]any) (string, error) {
			return renderer.AccreditationsMarkdown("Pending Accreditations", b.Pending()), nil
		}),

		bookFunc(books, &genai.FunctionDeclaration{
			Name:        "Accreditation",
			Description: `Accreditation details one card accreditation and its tax deductions.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id": {Type: genai.TypeString, Description: "The accreditation id, like ACR/0001."},
				},
				Required: []string{"id"},
			},
			Response: markdownResponse,
		}, func(b *settle.Book, args map[string]any) (string, error) {
			id, err := stringArg(args, "id")
			if err != nil {
				return "", err
			}
			a, err := b.Accreditation(id)
			if err != nil {
				return "", err
			}
			return renderer.AccreditationMarkdown(a), nil
		}),

		bookFunc(books, &genai.FunctionDeclaration{
			Name: "Batch",
			Description: `Batch details a batch transfer of credited coupons to the bank, with its state,
			its payments and its accreditations. Without name, it lists all the batches.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {Type: genai.TypeString, Description: "The batch name, like LIQ/2025/0001."},
				},
			},
			Response: markdownResponse,
		}, func(b *settle.Book, args map[string]any) (string, error) {
			if _, ok := args["name"]; !ok {
				var sb strings.Builder
				for _, t := range b.Batches() {
					fmt.Fprintf(&sb, "- %s: %s on %s, %s\n", t.Name, t.State(), t.Date, t.FinalAmount())
				}
				return sb.String(), nil
			}
			name, err := stringArg(args, "name")
			if err != nil {
				return "", err
			}
			t, err := b.Batch(name)
			if err != nil {
				return "", err
			}
			return renderer.BatchMarkdown(b, t), nil
		}),

		bookFunc(books, &genai.FunctionDeclaration{
			Name: "Balance",
			Description: `Balance returns the trial balance of the general ledger, or the balance of
			the accounts starting with each of the given code prefixes (like "1.1.2" for card receivables).`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"prefixes": {
						Type:        genai.TypeArray,
						Items:       &genai.Schema{Type: genai.TypeString},
						Description: "Account code prefixes, the trial balance when empty.",
					},
				},
			},
			Response: markdownResponse,
		}, func(b *settle.Book, args map[string]any) (string, error) {
			var prefixes []string
			if v, ok := args["prefixes"].([]any); ok {
				for _, p := range v {
					if s, ok := p.(string); ok {
						prefixes = append(prefixes, s)
					}
				}
			}
			gl := b.GeneralLedger()
			if len(prefixes) > 0 {
				return renderer.BalanceMarkdown(gl, b.Currency(), prefixes...), nil
			}
			return renderer.TrialBalanceMarkdown(date.Today(), b.Currency(), gl.TrialBalance(b.Currency())), nil
		}),

		bookFunc(books, &genai.FunctionDeclaration{
			Name:        "Dashboard",
			Description: `Dashboard evaluates the indicators of the books on a day, and lists those out of their safe zone.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date": {
						Type: genai.TypeString,
						Description: `The date on which to evaluate the dashboard. Today is the default.
					Otherwise it uses a flexible date format based on YYYY-MM-DD:

					` + must(docs.GetTopic("dates")),
					},
				},
			},
			Response: markdownResponse,
		}, func(b *settle.Book, args map[string]any) (string, error) {
			on, err := parseDate(args)
			if err != nil {
				return "", err
			}
			results, err := b.Dashboard(on)
			if err != nil {
				return "", err
			}
			return renderer.DashboardMarkdown(on, results), nil
		}),
	}
}
