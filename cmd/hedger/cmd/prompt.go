package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/hedger/guard"
)

// prompt asks confirmations on a terminal. Anything but y or yes declines.
type prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompt(in io.Reader, out io.Writer) *prompt {
	return &prompt{in: bufio.NewReader(in), out: out}
}

func (p *prompt) Confirm(ctx context.Context, c guard.Confirmation) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.out, "%s [y/N] ", c.Msg)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
