//go:build windows

package main

import (
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

const powershellExe = "powershell.exe"

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func showError(message string) {
	quoted := strings.ReplaceAll(message, "'", "''")
	script := "Add-Type -AssemblyName System.Windows.Forms; " +
		"[System.Windows.Forms.MessageBox]::Show('" + quoted + "', 'KodLaewLong Error', 'OK', 'Error') | Out-Null"
	cmd := exec.Command(powershellExe, "-NoProfile", "-Command", script)
	hideWindow(cmd)
	_ = cmd.Run()
}
