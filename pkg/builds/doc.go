// Package builds owns the on-disk build namespace.
//
// # Overview
//
// Every generate request gets its own directory under a configured root, named
// by a fresh version 4 UUID:
//
//	<root>/<buildId>/KodLaewLong-Installer.exe            native build
//	<root>/<buildId>/install.ps1 + Install.bat            degraded build
//
// A directory holds exactly one primary artifact. Builds are written once by
// Create and never modified afterwards.
//
// # Resolving
//
// Resolve checks the build id with validation.IsValidBuildID before it is ever
// joined into a path, so a token such as "../etc" fails with ErrInvalidID
// without touching the filesystem.
//
// # Usage
//
// Walk enumerates existing builds. UsageCollector turns a walk into gauges and
// is scheduled as a cron job by the server; it never deletes anything.
package builds
