// Package artifacts mirrors finished builds to S3-compatible object storage.
//
// Mirroring is optional and runs in the background after a build is created;
// local delivery never depends on it. Each file of a build directory becomes one
// object:
//
//	<prefix>/<buildId>/KodLaewLong-Installer.exe
//	<prefix>/<buildId>/install.ps1
//	<prefix>/<buildId>/Install.bat
//
// Objects carry the build id, artifact kind, item count and a SHA-256 of the
// content as user metadata.
package artifacts
