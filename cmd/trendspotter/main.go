// Trendspotter tracks what is trending on TikTok, category by category.
//
// It periodically asks a hosted language model for each category's current
// trends, files them by day in a SQLite database and serves them to the
// browser client over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oklog/run"
	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var sigErr run.SignalError
		if errors.As(err, &sigErr) || errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
