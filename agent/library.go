package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Function is a tool a model can call.
type Function interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

// Library dispatches the function calls of a model to its functions, by name.
type Library map[string]Function

// NewLibrary indexes functions by their declared name.
func NewLibrary[T Function](functions []T) Library {
	lib := make(Library, len(functions))
	for _, f := range functions {
		lib[f.Declaration().Name] = f
	}
	return lib
}

// Call runs one function call. Failures are reported in the response so
// that the model can recover from them.
func (lib Library) Call(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
	f, ok := lib[call.Name]
	if !ok {
		return errorResponse(call.ID, call.Name, fmt.Errorf("unknown function %q", call.Name))
	}
	return f.Call(ctx, call.ID, call.Args)
}

// NewDeclaration returns the declarations of functions, in order.
func NewDeclaration[T Function](functions []T) []*genai.FunctionDeclaration {
	result := make([]*genai.FunctionDeclaration, 0, len(functions))
	for _, f := range functions {
		result = append(result, f.Declaration())
	}
	return result
}
