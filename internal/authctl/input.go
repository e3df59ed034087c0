package authctl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// test seams for the terminal
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// ReadLine reads one line from reader. The trailing newline is trimmed; a
// final line without newline is returned as is.
func ReadLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret prompts on w and reads a secret. When fd is a terminal the input
// is not echoed; otherwise one line is read from reader, so secrets can be
// piped in.
func ReadSecret(fd int, reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if !isTerminal(fd) {
		return ReadLine(reader)
	}

	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
