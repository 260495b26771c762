// Generates the bcrypt hash for OPERATOR_PASSWORD_HASH.
//
//	go run ./cmd/hash-password -- "the-password"
package main

import (
	"fmt"
	"os"

	"github.com/glamhair/patglam-agent/pkg/auth"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: hash-password <password>")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
}
