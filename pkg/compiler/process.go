package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks for output pipes after a kill
const waitDelay = 5 * time.Second

// maxOutputBytes caps the compiler output kept for error messages
const maxOutputBytes = 4 << 10

// runProcess runs name with args in its own process group. The group is killed
// when ctx is done.
func runProcess(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay

	var output bytes.Buffer
	cmd.Stdout = &limitedBuffer{buf: &output, max: maxOutputBytes}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
		}
		return fmt.Errorf("%w: failed to start: %v", ErrCompileFailed, err)
	}

	err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return ErrCompileTimeout
		}
		return fmt.Errorf("%w: %v", ErrCompileFailed, ctxErr)
	}
	if err != nil {
		return fmt.Errorf("%w: %v: %s", ErrCompileFailed, err, strings.TrimSpace(output.String()))
	}
	return nil
}

type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}
