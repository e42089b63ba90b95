package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassphraseEnv overrides the secret file passphrase prompt
const PassphraseEnv = "IMGPROBE_PASSPHRASE"

// ErrNoPassphrase means the secret file cannot be opened without a terminal
var ErrNoPassphrase = errors.New("secret file passphrase unavailable: set " + PassphraseEnv + " or run from a terminal")

// Prompter reads values without echo when FD is a terminal and reads a
// line from In otherwise.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// FD is the terminal file descriptor; -1 means never a terminal
	FD int
}

// TerminalPrompter prompts on stderr and reads from stdin
func TerminalPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr, FD: int(os.Stdin.Fd())}
}

// NewPrompter reads lines from in and never treats it as a terminal
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{In: in, Out: out, FD: -1}
}

// Interactive reports whether input comes from a terminal
func (p *Prompter) Interactive() bool {
	return p.FD >= 0 && term.IsTerminal(p.FD)
}

// Read prints label and returns the trimmed value
func (p *Prompter) Read(label string) (string, error) {
	if p.Out != nil && label != "" {
		fmt.Fprintf(p.Out, "%s: ", label)
	}

	if p.Interactive() {
		value, err := term.ReadPassword(p.FD)
		if p.Out != nil {
			fmt.Fprintln(p.Out)
		}
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	input, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PassphraseFunc supplies the secret file passphrase when it is first needed
type PassphraseFunc func() (string, error)

// StaticPassphrase always returns pass
func StaticPassphrase(pass string) PassphraseFunc {
	return func() (string, error) { return pass, nil }
}

// EnvOrPrompt reads IMGPROBE_PASSPHRASE, or asks for it when p is a terminal.
// Piped input is never used for the passphrase since it may carry the
// secret being stored.
func EnvOrPrompt(p *Prompter) PassphraseFunc {
	return func() (string, error) {
		if pass := os.Getenv(PassphraseEnv); pass != "" {
			return pass, nil
		}
		if p == nil || !p.Interactive() {
			return "", ErrNoPassphrase
		}
		pass, err := p.Read("Secret file passphrase")
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		if pass == "" {
			return "", ErrNoPassphrase
		}
		return pass, nil
	}
}
