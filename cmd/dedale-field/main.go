// Command dedale-field simulates the mobile companion: it dials the session
// URI encoded in a desktop QR code and drives the sync protocol from a
// terminal UI.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dedale/desktop/internal/field/app"
	"github.com/dedale/desktop/internal/field/client"
)

func main() {
	uri := flag.String("url", "", "Session URI from the desktop QR code, e.g. ws://192.168.1.20:41234/")
	flag.Parse()

	if *uri == "" && flag.NArg() > 0 {
		*uri = flag.Arg(0)
	}
	if err := validate(*uri); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	m := app.New(client.NewMobileClient(*uri))
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func validate(uri string) error {
	if uri == "" {
		return fmt.Errorf("a session URI is required")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("session URI must use ws:// or wss://, got %q", u.Scheme)
	}
	return nil
}
