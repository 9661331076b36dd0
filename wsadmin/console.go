package wsadmin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Console is the operator's terminal: line-based prompts on in, everything
// else on out.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	// secret reads a line without echo. Nil means read it like any other
	// line.
	secret func() (string, error)
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// NewTerminalConsole uses stdin/stdout, hiding password input when stdin is
// a terminal.
func NewTerminalConsole() *Console {
	c := NewConsole(os.Stdin, os.Stdout)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		c.secret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			return string(b), err
		}
	}
	return c
}

func (c *Console) Out() io.Writer { return c.out }

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Prompt prints label and returns the next input line without its line
// ending. Surrounding spaces are kept, passwords may contain them.
func (c *Console) Prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptSecret is Prompt without echo when the console supports it.
func (c *Console) PromptSecret(label string) (string, error) {
	if c.secret == nil {
		return c.Prompt(label)
	}
	fmt.Fprint(c.out, label)
	s, err := c.secret()
	fmt.Fprintln(c.out)
	return s, err
}

// PromptTrimmed is Prompt with surrounding whitespace removed.
func (c *Console) PromptTrimmed(label string) (string, error) {
	s, err := c.Prompt(label)
	return strings.TrimSpace(s), err
}
