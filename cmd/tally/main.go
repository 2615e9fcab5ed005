// Command tally tracks recurring subscriptions and one-time purchases and
// reports what they cost per category.
package main

import (
	"context"
	"errors"

	"tally/internal/cli"
)

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	if err = errors.Join(err, a.close()); err != nil {
		cli.Fatal(err)
	}
}
