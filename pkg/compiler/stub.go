package compiler

import (
	"context"
	"fmt"
	"os"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/compiler/payload"
)

// StubCompiler builds an executable by appending the script to a prebuilt stub
type StubCompiler struct {
	stubPath string
}

// NewStubCompiler creates a compiler over the stub at stubPath
func NewStubCompiler(stubPath string) *StubCompiler {
	return &StubCompiler{stubPath: stubPath}
}

// Name implements NativeCompiler
func (c *StubCompiler) Name() string { return "stub" }

// Compile implements NativeCompiler
func (c *StubCompiler) Compile(ctx context.Context, scriptPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stub, err := os.Open(c.stubPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
	}
	defer stub.Close()

	src, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}
	defer src.Close()

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}

	if _, err := payload.Append(out, stub, src); err != nil {
		out.Close()
		return fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}
	return nil
}
