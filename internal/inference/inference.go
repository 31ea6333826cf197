// Package inference talks to the text-to-structure model. The rest of the
// system only sees the Inferrer interface.
package inference

import (
	"context"
)

// Inferrer sends a prompt to a language model and returns its raw text.
type Inferrer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Inferrer.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Infer(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Static returns an Inferrer that always answers with response.
func Static(response string) Inferrer {
	return Func(func(context.Context, string) (string, error) {
		return response, nil
	})
}
