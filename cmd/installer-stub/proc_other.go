//go:build !windows

package main

import (
	"fmt"
	"os"
	"os/exec"
)

const powershellExe = "pwsh"

func hideWindow(*exec.Cmd) {}

func showError(message string) {
	fmt.Fprintf(os.Stderr, "KodLaewLong Error: %s\n", message)
}
