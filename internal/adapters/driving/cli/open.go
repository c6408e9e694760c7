package cli

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openFile is replaced in tests.
var openFile = openWithDefaultApp

// openWithDefaultApp opens path with the application registered for it.
func openWithDefaultApp(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
