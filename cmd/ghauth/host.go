package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jrsteele09/github-authentication/events"
	"github.com/jrsteele09/github-authentication/provider"
)

// consoleHost is the terminal side of the provider: it keeps the registered
// provider, prints change events and shows errors.
type consoleHost struct {
	out    io.Writer
	errOut io.Writer

	mu           sync.Mutex
	registered   provider.AuthenticationProvider
	unsubscribes []func()
}

var (
	_ provider.Host          = (*consoleHost)(nil)
	_ provider.ErrorReporter = (*consoleHost)(nil)
)

func newConsoleHost(out, errOut io.Writer) *consoleHost {
	return &consoleHost{out: out, errOut: errOut}
}

func (h *consoleHost) RegisterAuthenticationProvider(p provider.AuthenticationProvider) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.registered != nil {
		return fmt.Errorf("authentication provider %q is already registered", h.registered.ID())
	}
	h.registered = p
	h.unsubscribes = append(h.unsubscribes, p.OnDidChangeSessions(h.printChange))
	return nil
}

func (h *consoleHost) ShowErrorMessage(message string) {
	fmt.Fprintln(h.errOut, text.FgRed.Sprint(message))
}

func (h *consoleHost) authProvider() provider.AuthenticationProvider {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registered
}

func (h *consoleHost) printChange(ev events.ChangeEvent) {
	var parts []string
	if len(ev.Added) > 0 {
		parts = append(parts, "added "+strings.Join(ev.Added, ", "))
	}
	if len(ev.Changed) > 0 {
		parts = append(parts, "changed "+strings.Join(ev.Changed, ", "))
	}
	if len(ev.Removed) > 0 {
		parts = append(parts, "removed "+strings.Join(ev.Removed, ", "))
	}
	fmt.Fprintf(h.errOut, "%s %s\n", text.FgHiBlue.Sprint("Sessions:"), strings.Join(parts, "; "))
}

func (h *consoleHost) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, unsubscribe := range h.unsubscribes {
		unsubscribe()
	}
	h.unsubscribes = nil
}
