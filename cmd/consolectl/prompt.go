package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

var errNotConfirmed = errors.New("aborted")

// confirm asks before a destructive action. Without a terminal on stdin the
// action needs --yes, so scripts never block on a prompt.
func confirm(format string, args ...any) error {
	if assumeYes {
		return nil
	}
	if f, ok := stdin.(*os.File); !ok || !isTerminal(int(f.Fd())) {
		return fmt.Errorf("refusing to %s without a terminal; pass --yes", fmt.Sprintf(format, args...))
	}

	fmt.Fprintf(os.Stderr, "%s? [y/N] ", colorize(colorYellow, fmt.Sprintf(format, args...)))
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return errNotConfirmed
}
