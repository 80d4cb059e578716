package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	"github.com/etnz/settle/renderer"
	"github.com/google/subcommands"
)

type reportTask struct {
	Period date.Range
	Report string
}

type publishCmd struct {
	outputDir      string
	frontMatterTpl string
}

func (*publishCmd) Name() string { return "publish" }

func (*publishCmd) Synopsis() string { return "generates the historical reports of the books" }

func (*publishCmd) Usage() string {
	return `cst publish [-o <dir>] [-frontmatter <file>]

  Generates the dashboard and the collected accreditations for all periods
  (weekly, monthly, quarterly and yearly), and one page per batch transfer,
  and saves them to a structured directory tree.
`
}

func (c *publishCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "o", "reports", "Root directory for the generated reports")
	f.StringVar(&c.frontMatterTpl, "frontmatter", "", "Path to a Go template file for the report front matter")
}

func (c *publishCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var frontMatterTpl *template.Template
	if c.frontMatterTpl != "" {
		var err error
		frontMatterTpl, err = template.ParseFiles(c.frontMatterTpl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse front matter template: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	book := st.Book()

	startDate, _ := ledgerSpan(st.Ledger())
	if startDate.IsZero() {
		fmt.Println("Ledger is empty, nothing to publish.")
		return subcommands.ExitSuccess
	}
	endDate := date.Today().Add(-1)

	periods := generatePeriods(startDate, endDate)
	tasks := make([]reportTask, 0, 2*len(periods))
	for _, period := range periods {
		tasks = append(tasks, reportTask{Period: period, Report: "dashboard"})
		tasks = append(tasks, reportTask{Period: period, Report: "accreditations"})
	}

	write := func(task reportTask, filePath, md string) error {
		if frontMatterTpl != nil {
			fm, err := renderFrontMatter(frontMatterTpl, task)
			if err != nil {
				return fmt.Errorf("failed to render front matter of %s: %w", filePath, err)
			}
			md = fm + "\n" + md
		}
		fullPath := filepath.Join(c.outputDir, filePath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create output directory for file %s: %w", filePath, err)
		}
		if err := os.WriteFile(fullPath, []byte(md), 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", filePath, err)
		}
		return nil
	}

	for _, task := range tasks {
		var md string
		switch task.Report {
		case "dashboard":
			results, err := book.Dashboard(task.Period.To)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to evaluate the dashboard on %s: %v\n", task.Period.To, err)
				return subcommands.ExitFailure
			}
			md = renderer.DashboardMarkdown(task.Period.To, results)
		case "accreditations":
			md = renderer.AccreditationsMarkdown("Accreditations "+task.Period.Identifier(), collectedIn(book, task.Period))
		}

		filePath := path.Join(task.Report, task.Period.Name(), task.Period.Identifier()+".md")
		if err := write(task, filePath, md); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		log.Printf("Generated %s report for period %s", task.Report, task.Period.Identifier())
	}

	for _, t := range book.Batches() {
		task := reportTask{Period: date.Between(t.Date, t.Date), Report: "batch"}
		filePath := path.Join("batch", strings.ReplaceAll(t.Name, "/", "-")+".md")
		if err := write(task, filePath, renderer.BatchMarkdown(book, t)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		log.Printf("Generated batch report %s", t.Name)
	}
	return subcommands.ExitSuccess
}

// ledgerSpan returns the first and last dates of the ledger commands.
func ledgerSpan(l *settle.Ledger) (first, last date.Date) {
	for _, cmd := range l.Commands() {
		on := cmd.When()
		if first.IsZero() || on.Before(first) {
			first = on
		}
		if on.After(last) {
			last = on
		}
	}
	return first, last
}

func collectedIn(b *settle.Book, r date.Range) []*settle.Accreditation {
	var accs []*settle.Accreditation
	for _, a := range b.Accreditations() {
		if r.Contains(a.CollectionDate) {
			accs = append(accs, a)
		}
	}
	return accs
}

func generatePeriods(startDate, endDate date.Date) []date.Range {
	if startDate.IsZero() {
		return nil
	}
	var ranges []date.Range
	for _, p := range date.Periods {
		for r := date.NewRange(startDate, p); !r.From.After(endDate); r = r.Next() {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

func renderFrontMatter(tpl *template.Template, task reportTask) (string, error) {
	var fmBuffer bytes.Buffer
	if err := tpl.Execute(&fmBuffer, task); err != nil {
		return "", err
	}
	return fmBuffer.String(), nil
}
