package conversation

import "context"

// SMSSender delivers replies back to the sender's phone. Implementations
// return the provider message id on success.
type SMSSender interface {
	Send(ctx context.Context, from, to, body string) (string, error)
}
