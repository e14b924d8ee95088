package compiler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/script"
)

// Product metadata stamped into compiled installers
const (
	ProductTitle   = "KodLaewLong Installer"
	ProductCompany = "KodLaewLong"
	ProductName    = "Software Installer"
	ProductVersion = "1.0.0.0"
)

// PS2EXEOptions locates PowerShell and the ps2exe module
type PS2EXEOptions struct {
	PowerShellPath string
	ModulePath     string
	IconPath       string
}

// PS2EXECompiler compiles scripts with ps2exe
type PS2EXECompiler struct {
	opts PS2EXEOptions
}

// NewPS2EXECompiler creates a ps2exe compiler
func NewPS2EXECompiler(opts PS2EXEOptions) *PS2EXECompiler {
	if opts.PowerShellPath == "" {
		opts.PowerShellPath = "powershell"
	}
	return &PS2EXECompiler{opts: opts}
}

// Name implements NativeCompiler
func (c *PS2EXECompiler) Name() string { return "ps2exe" }

// Available reports whether PowerShell and the ps2exe module can be found
func (c *PS2EXECompiler) Available() error {
	if _, err := exec.LookPath(c.opts.PowerShellPath); err != nil {
		return fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
	}
	if c.opts.ModulePath == "" {
		return fmt.Errorf("%w: ps2exe module path not set", ErrCompilerUnavailable)
	}
	if _, err := os.Stat(c.opts.ModulePath); err != nil {
		return fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
	}
	return nil
}

// Compile implements NativeCompiler
func (c *PS2EXECompiler) Compile(ctx context.Context, scriptPath, outputPath string) error {
	if err := c.Available(); err != nil {
		return err
	}
	return runProcess(ctx, c.opts.PowerShellPath, c.Args(scriptPath, outputPath)...)
}

// Args returns the PowerShell argument vector. Paths and metadata are passed
// as single-quoted literals inside the -Command block.
func (c *PS2EXECompiler) Args(scriptPath, outputPath string) []string {
	invoke := []string{
		"Invoke-ps2exe",
		"-inputFile", script.QuoteLiteral(scriptPath),
		"-outputFile", script.QuoteLiteral(outputPath),
	}
	if c.opts.IconPath != "" {
		if _, err := os.Stat(c.opts.IconPath); err == nil {
			invoke = append(invoke, "-iconFile", script.QuoteLiteral(c.opts.IconPath))
		}
	}
	invoke = append(invoke,
		"-title", script.QuoteLiteral(ProductTitle),
		"-company", script.QuoteLiteral(ProductCompany),
		"-product", script.QuoteLiteral(ProductName),
		"-version", script.QuoteLiteral(ProductVersion),
		"-noConsole",
		"-requireAdmin",
	)

	command := fmt.Sprintf(". %s; %s", script.QuoteLiteral(c.opts.ModulePath), strings.Join(invoke, " "))
	return []string{
		"-NoProfile",
		"-NonInteractive",
		"-ExecutionPolicy", "Bypass",
		"-Command", command,
	}
}
