// Command checkenv reports which backend credentials are present in the
// environment (after applying .env.local and .env) without printing their
// values. It exits 1 when a required key is missing.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/designai/studio-backend/internal/config"
)

func main() {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "WARN: could not read %s: %v\n", f, err)
		}
	}
	os.Exit(run(os.Stdout, os.LookupEnv))
}

func run(w io.Writer, lookup func(string) (string, bool)) int {
	results, err := config.Check(config.CheckKeys, lookup)
	for _, r := range results {
		switch {
		case r.Present:
			fmt.Fprintf(w, "OK: %s is present (Length: %d)\n", r.Key, r.Length)
		case r.Required:
			fmt.Fprintf(w, "ERROR: Missing key: %s\n", r.Key)
		default:
			fmt.Fprintf(w, "WARN: Optional key not set: %s\n", r.Key)
		}
	}
	if err != nil {
		return 1
	}
	return 0
}
