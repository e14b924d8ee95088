package main

import (
	"context"
	"os"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/compiler"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/config"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// selectCompiler picks the native compiler and a readiness probe for it. A
// missing toolchain is logged and the server still starts; builds then ship as
// script plus launcher. The probe is nil when compilation is disabled.
func selectCompiler(cfg config.CompilerConfig, logger *observability.Logger) (compiler.NativeCompiler, observability.CheckFunc) {
	log := logger.WithField("component", "compiler")

	switch cfg.Kind {
	case config.CompilerPS2EXE:
		c := compiler.NewPS2EXECompiler(compiler.PS2EXEOptions{
			PowerShellPath: cfg.PowerShellPath,
			ModulePath:     cfg.PS2EXEScript,
			IconPath:       cfg.IconPath,
		})
		if err := c.Available(); err != nil {
			log.WithError(err).Warn("ps2exe not available, installers will ship as script plus launcher")
		}
		return c, func(context.Context) error { return c.Available() }

	case config.CompilerStub:
		if _, err := os.Stat(cfg.StubPath); err != nil {
			log.WithError(err).Warn("Installer stub not found, installers will ship as script plus launcher")
		}
		return compiler.NewStubCompiler(cfg.StubPath), func(context.Context) error {
			_, err := os.Stat(cfg.StubPath)
			return err
		}

	default:
		log.Info("Native compilation disabled")
		return compiler.NullCompiler{}, nil
	}
}
