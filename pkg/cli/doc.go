// Package cli provides the kll command-line client.
//
// The client mirrors the web flow: generate a build for a list of app ids,
// then download the installer.
//
//	kll generate vscode 7zip
//	kll generate --download --out ./dist vscode 7zip
//	kll download 3f0c2b1e-8a4d-4b6f-9c1e-2d7a5b3c4e6f --out ./dist
//
// The server defaults to http://localhost:3001 and can be set with --server or
// KLL_SERVER. Downloads are written to a temporary file and renamed once the
// transfer is complete, so an interrupted download never leaves a truncated
// installer behind.
package cli
