package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	minPasswordLength = 6
	// bcrypt rejects passwords longer than 72 bytes.
	maxPasswordLength = 72
)

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	errPasswordTooLong  = fmt.Errorf("password must not exceed %d bytes", maxPasswordLength)
)

// passwordReader reads one password, without echo when stdin is a terminal.
type passwordReader func(prompt string) ([]byte, error)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help") {
		printUsage(os.Stdout)
		return
	}

	if err := run(stdinReader(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Photo Indexer Admin Password Hash")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: hashpw")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Prompts for a password twice and prints its bcrypt hash. Set the")
	fmt.Fprintln(w, "result as ADMIN_PASSWORD_HASH to require HTTP basic auth (user")
	fmt.Fprintln(w, "\"admin\") on the reconcile and provision endpoints.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "When stdin is not a terminal the first two lines are read instead.")
}

func run(read passwordReader, out io.Writer) error {
	password, err := read("New Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	confirm, err := read("Confirm Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	if err := validatePassword(password, confirm); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	fmt.Fprintln(out, string(hash))
	return nil
}

func validatePassword(password, confirm []byte) error {
	if !bytes.Equal(password, confirm) {
		return errPasswordMismatch
	}
	if len(password) < minPasswordLength {
		return errPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return errPasswordTooLong
	}
	return nil
}

func stdinReader() passwordReader {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if term.IsTerminal(fd) {
		return func(prompt string) ([]byte, error) {
			fmt.Fprint(os.Stderr, prompt)
			password, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return password, err
		}
	}
	return lineReader(os.Stdin)
}

// lineReader reads one password per line from r.
func lineReader(r io.Reader) passwordReader {
	scanner := bufio.NewScanner(r)
	return func(string) ([]byte, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.ErrUnexpectedEOF
		}
		return []byte(strings.TrimRight(scanner.Text(), "\r")), nil
	}
}
