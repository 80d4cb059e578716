// Package agent implements "cst assist", a chat with a team of Gemini experts
// able to read the books.
//
// The user talks to a facilitator. The facilitator sees the other experts as
// functions taking a question, and the experts see the books through the
// functions of BookTools.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent runs the chat session between the user and the facilitator.
type Agent struct {
	w           io.Writer
	in          *bufio.Scanner
	Facilitator *Expert
	Experts     []*Expert
	// Render formats the markdown answers, they are printed as is when nil.
	Render func(string) string
}

// New creates an Agent writing to w and reading the user questions from r.
func New(w io.Writer, r io.Reader, experts ...*Expert) *Agent {
	return &Agent{
		w:           w,
		in:          bufio.NewScanner(r),
		Experts:     experts,
		Facilitator: newFacilitator(experts...),
	}
}

// Start creates the chats of the experts and the facilitator.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range a.Experts {
		if err := e.Start(ctx, client); err != nil {
			return err
		}
	}
	return a.Facilitator.Start(ctx, client)
}

const prompt = "assist> "

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "bye", "exit", "quit", "chau":
		return true
	}
	return false
}

// next returns the next question: queued ones first, then the user's.
func (a *Agent) next(queue *[]string) (string, bool) {
	fmt.Fprint(a.w, prompt)
	for len(*queue) > 0 {
		q := strings.TrimSpace((*queue)[0])
		*queue = (*queue)[1:]
		if q != "" {
			fmt.Fprintln(a.w, q)
			return q, true
		}
	}
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// Run answers the questions, the queued ones first, until the user exits or
// the input ends.
func (a *Agent) Run(ctx context.Context, client *genai.Client, questions ...string) error {
	if a.Facilitator.chat == nil {
		if err := a.Start(ctx, client); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.w, "Welcome to cst assist. Type 'bye' to exit.")

	for {
		input, ok := a.next(&questions)
		if !ok {
			return a.in.Err()
		}
		if input == "" {
			continue
		}
		if isExit(input) {
			return nil
		}
		answer, err := a.Facilitator.Ask(ctx, &genai.Part{Text: input})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.w, a.render(answer))
	}
}

func (a *Agent) render(md string) string {
	if a.Render == nil {
		return md
	}
	return a.Render(md)
}
