// Package source produces the stream of input paths.
package source

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/mimecast/gzscan/internal/errors"
)

// Stdin is the input name selecting standard input.
const Stdin = "-"

// Open returns the path list named by input, reading stdin for Stdin. The
// caller closes it.
func Open(input string, stdin io.Reader) (io.ReadCloser, error) {
	if input == "" || input == Stdin {
		return io.NopCloser(stdin), nil
	}
	fd, err := os.Open(input)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "opening path list %q: %v", input, err)
	}
	return fd, nil
}

// Paths reads newline separated paths from r and sends each one, trimmed of
// surrounding whitespace, on paths. Blank lines are sent as empty paths.
// Entries are not length limited; a malformed one fails when it is opened.
// Paths closes the channel when it returns.
func Paths(ctx context.Context, r io.Reader, paths chan<- string) error {
	defer close(paths)

	br := bufio.NewReader(r)
	for {
		entry, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "reading path list")
		}
		if err == io.EOF && entry == "" {
			return nil
		}

		// A ready send must not win over a cancelled context.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		select {
		case paths <- strings.TrimSpace(entry):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err == io.EOF {
			return nil
		}
	}
}
