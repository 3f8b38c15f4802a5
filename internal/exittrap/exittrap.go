// SPDX-License-Identifier: MPL-2.0

// Package exittrap owns the process-wide exit policy consulted whenever an
// invoked script asks to terminate the host process.
//
// Scripts never call os.Exit directly; runtimes route exit requests through
// Exit, which terminates the process only when the current policy allows it.
// Install swaps in a blocking policy and returns a Token for the policy it
// replaced; Restore puts that policy back. Only one trap may be installed at
// a time.
package exittrap

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/invowk/scriptexec/pkg/types"
)

var (
	// ErrExitBlocked is the sentinel error wrapped by ExitBlockedError.
	ErrExitBlocked = errors.New("process exit blocked")
	// ErrAlreadyInstalled is returned by Install while another trap is held.
	ErrAlreadyInstalled = errors.New("exit trap already installed")
)

var (
	mu sync.Mutex
	//nolint:gochecknoglobals // The process-wide policy slot this package guards.
	current Policy = AllowPolicy{}
	//nolint:gochecknoglobals // Generation of the currently held trap; 0 when none.
	held uint64
	//nolint:gochecknoglobals // Monotonic generation counter for tokens.
	generation uint64

	//nolint:gochecknoglobals // Test seam for os.Exit().
	osExit = os.Exit
)

type (
	// Policy decides whether a requested process exit may proceed.
	// A nil error allows the exit.
	Policy interface {
		CheckExit(code types.ExitCode) error
	}

	// AllowPolicy lets every exit through. It is the policy in force when no
	// trap is installed.
	AllowPolicy struct{}

	// BlockPolicy refuses every exit.
	BlockPolicy struct{}

	// Token represents the policy captured by Install. Pass it to Restore.
	Token struct {
		prior      Policy
		generation uint64
	}

	// ExitBlockedError is returned by Exit when the policy refused the exit.
	ExitBlockedError struct {
		Code types.ExitCode
	}
)

// CheckExit always allows the exit.
func (AllowPolicy) CheckExit(types.ExitCode) error { return nil }

// CheckExit always refuses the exit.
func (BlockPolicy) CheckExit(code types.ExitCode) error {
	return &ExitBlockedError{Code: code}
}

// Error implements the error interface.
func (e *ExitBlockedError) Error() string {
	return fmt.Sprintf("script attempted to terminate the process with exit status %s", e.Code)
}

// Unwrap returns ErrExitBlocked so callers can use errors.Is for programmatic detection.
func (e *ExitBlockedError) Unwrap() error { return ErrExitBlocked }

// Install captures the current policy, replaces it with BlockPolicy and
// returns a Token for the captured one. It fails with ErrAlreadyInstalled if
// a trap is already held: the policy slot has a single owner.
func Install() (Token, error) {
	mu.Lock()
	defer mu.Unlock()

	if held != 0 {
		return Token{}, ErrAlreadyInstalled
	}

	generation++
	held = generation
	tok := Token{prior: current, generation: generation}
	current = BlockPolicy{}
	return tok, nil
}

// Restore reinstates the policy captured by tok. Restoring a token that does
// not own the trap (zero value, or already restored) is a no-op.
func Restore(tok Token) {
	mu.Lock()
	defer mu.Unlock()

	if tok.generation == 0 || tok.generation != held {
		return
	}
	current = tok.prior
	held = 0
}

// Guard installs a trap unless allowExits is set, and returns the function
// that releases it. With allowExits the policy is left untouched and release
// is a no-op.
func Guard(allowExits bool) (release func(), err error) {
	if allowExits {
		return func() {}, nil
	}
	tok, err := Install()
	if err != nil {
		return nil, err
	}
	return func() { Restore(tok) }, nil
}

// Current returns the policy in force.
func Current() Policy {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Installed reports whether a trap is currently held.
func Installed() bool {
	mu.Lock()
	defer mu.Unlock()
	return held != 0
}

// Exit asks to terminate the process with code. When the policy refuses, the
// refusal is returned and the process keeps running; otherwise the process
// exits and Exit does not return.
func Exit(code types.ExitCode) error {
	if err := Current().CheckExit(code); err != nil {
		return err
	}
	osExit(int(code))
	return nil
}
