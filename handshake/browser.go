package handshake

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// URLOpener presents the authorization URL to the user.
type URLOpener interface {
	Open(ctx context.Context, url string) error
}

// URLOpenerFunc adapts a function to URLOpener.
type URLOpenerFunc func(ctx context.Context, url string) error

func (f URLOpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// BrowserOpener opens URLs in the default web browser on Linux, macOS and Windows.
type BrowserOpener struct{}

func (BrowserOpener) Open(_ context.Context, url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	// Don't wait, the browser keeps running after the handshake
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
