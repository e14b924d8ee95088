// Command installer-stub is the prebuilt executable the stub compiler prepends
// to generated scripts. At run time it reads its own file, takes the script
// after the last payload marker, writes it to a temporary .ps1 and runs it with
// PowerShell. If the hidden run fails it is retried once with a visible window.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/compiler/payload"
)

var errNoPayload = errors.New("installer script not found, please download the installer again")

func main() {
	if err := run(); err != nil {
		showError(err.Error())
		os.Exit(1)
	}
}

func run() error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate installer: %w", err)
	}

	script, err := loadScript(exePath)
	if err != nil {
		return err
	}

	scriptPath, err := writeTempScript(script)
	if err != nil {
		return err
	}
	defer os.Remove(scriptPath)

	if err := powershell(scriptPath, true).Run(); err != nil {
		return powershell(scriptPath, false).Run()
	}
	return nil
}

func loadScript(exePath string) ([]byte, error) {
	data, err := os.ReadFile(exePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read installer: %w", err)
	}
	script, ok := payload.Extract(data)
	if !ok {
		return nil, errNoPayload
	}
	return script, nil
}

func writeTempScript(script []byte) (string, error) {
	f, err := os.CreateTemp("", "KodLaewLong-Installer-*.ps1")
	if err != nil {
		return "", fmt.Errorf("cannot create temporary script: %w", err)
	}
	if _, err := f.Write(script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("cannot write temporary script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("cannot write temporary script: %w", err)
	}
	return f.Name(), nil
}

func powershell(scriptPath string, hidden bool) *exec.Cmd {
	cmd := exec.Command(powershellExe, "-ExecutionPolicy", "Bypass", "-NoProfile", "-File", scriptPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if hidden {
		hideWindow(cmd)
	}
	return cmd
}
