// Runs the scripted call flow on stdin so the conversation can be walked
// through without a telephony provider. Each line is one caller turn; a
// line of bare digits is treated as keypad input.
//
//	go run ./cmd/simulate-call
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/glamhair/patglam-agent/internal/dialog"
)

func main() {
	planner := dialog.NewPlanner(3)
	session := dialog.NewCallSession("sim-" + uuid.New().String()[:8])

	fmt.Printf("agente: %s\n", dialog.Greeting)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		in := dialog.Input{Speech: line}
		if isDigits(line) {
			in = dialog.Input{Digits: line}
		}

		out := planner.Advance(session, in)
		fmt.Printf("agente: %s\n", out.Reply)
		fmt.Printf("  [stage=%s profile=%s retries=%d]\n",
			session.Stage, session.Slots.Profile, session.Retries)

		if out.EndCall {
			fmt.Println("-- chamada encerrada --")
			break
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
