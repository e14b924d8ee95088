// Package compiler packages a rendered install script into a build artifact.
//
// # Overview
//
// A NativeCompiler turns install.ps1 into a standalone executable. Three are
// provided:
//
//   - PS2EXECompiler: runs PowerShell with the ps2exe module (Windows hosts)
//   - StubCompiler: appends the script to a prebuilt stub executable
//   - NullCompiler: always unavailable
//
// Compilers are optional. The Adapter wraps one and never fails a build because
// of it: on any compiler error it removes partial output and writes Install.bat
// next to the script instead.
//
//	adapter := compiler.NewAdapter(compiler.NewStubCompiler(stubPath), compiler.AdapterOptions{
//		Timeout:       60 * time.Second,
//		MaxConcurrent: 2,
//	}, logger, metrics)
//	kind, err := adapter.Compile(ctx, scriptPath, buildDir)
//
// # Subprocesses
//
// External compilers run in their own process group (a hidden window on
// Windows). When the timeout or the caller's context fires, the whole group is
// killed and Wait returns within a bounded delay.
package compiler
