package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Default adapter limits
const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxConcurrent = 2
)

// NativeCompiler compiles scriptPath into a standalone executable at outputPath
type NativeCompiler interface {
	Name() string
	Compile(ctx context.Context, scriptPath, outputPath string) error
}

// NullCompiler is used when native compilation is disabled
type NullCompiler struct{}

// Name implements NativeCompiler
func (NullCompiler) Name() string { return "none" }

// Compile implements NativeCompiler
func (NullCompiler) Compile(context.Context, string, string) error {
	return ErrCompilerUnavailable
}

// AdapterOptions bounds native compilation
type AdapterOptions struct {
	Timeout       time.Duration
	MaxConcurrent int
}

// Adapter runs a NativeCompiler and falls back to script plus launcher
type Adapter struct {
	compiler NativeCompiler
	timeout  time.Duration
	sem      *semaphore.Weighted
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAdapter wraps compiler. A nil compiler behaves like NullCompiler.
func NewAdapter(compiler NativeCompiler, opts AdapterOptions, logger *observability.Logger, metrics *observability.Metrics) *Adapter {
	if compiler == nil {
		compiler = NullCompiler{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Adapter{
		compiler: compiler,
		timeout:  opts.Timeout,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:   logger.WithField("component", "compiler").WithField("compiler", compiler.Name()),
		metrics:  metrics,
	}
}

// CompilerName returns the wrapped compiler's name
func (a *Adapter) CompilerName() string {
	return a.compiler.Name()
}

// Compile implements builds.Packager. Compiler failures are logged and
// recovered. An error is returned only when the build dir cannot be left with
// exactly one artifact: the launcher cannot be written or a stray executable
// cannot be removed.
func (a *Adapter) Compile(ctx context.Context, scriptPath, outputDir string) (builds.ArtifactKind, error) {
	start := time.Now()
	outputPath := filepath.Join(outputDir, builds.ExecutableName)

	err := a.compileNative(ctx, scriptPath, outputPath)
	if err == nil {
		// The executable is only the artifact once the script is gone.
		if rmErr := os.Remove(scriptPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrScriptNotRemoved, rmErr)
		} else {
			a.metrics.RecordCompile(a.compiler.Name(), string(builds.KindNativeExecutable), time.Since(start))
			a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Native installer compiled")
			return builds.KindNativeExecutable, nil
		}
	}

	if rmErr := os.Remove(outputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove executable after %v: %w", err, rmErr)
	}

	log := a.logger.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds())
	if errors.Is(err, ErrCompilerUnavailable) {
		log.Debug("Native compiler unavailable, using launcher")
	} else {
		log.Warn("Native compile failed, using launcher")
	}

	if err := builds.WriteLauncher(outputDir); err != nil {
		return "", err
	}
	a.metrics.RecordCompile(a.compiler.Name(), string(builds.KindScriptPlusLauncher), time.Since(start))
	return builds.KindScriptPlusLauncher, nil
}

func (a *Adapter) compileNative(ctx context.Context, scriptPath, outputPath string) error {
	if _, ok := a.compiler.(NullCompiler); ok {
		return ErrCompilerUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: waiting for a compile slot", ErrCompileTimeout)
	}
	defer a.sem.Release(1)

	done := a.metrics.CompileStarted()
	defer done()

	if err := a.compiler.Compile(ctx, scriptPath, outputPath); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrCompileTimeout) {
			return fmt.Errorf("%w: %v", ErrCompileTimeout, err)
		}
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return ErrNoOutput
	}
	return nil
}
