package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/github-authentication/sessions"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// sessionView is what the CLI shows of a session. The access token is never printed.
type sessionView struct {
	ID        string    `json:"id" yaml:"id"`
	Account   string    `json:"account" yaml:"account"`
	AccountID string    `json:"account_id" yaml:"account_id"`
	Scopes    []string  `json:"scopes" yaml:"scopes"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func toViews(list []sessions.Session) []sessionView {
	views := make([]sessionView, 0, len(list))
	for _, s := range list {
		views = append(views, sessionView{
			ID:        s.ID,
			Account:   s.AccountLabel,
			AccountID: s.AccountID,
			Scopes:    s.Scopes,
			CreatedAt: s.CreatedAt,
		})
	}
	return views
}

func printSessions(w io.Writer, list []sessions.Session, format string) error {
	views := toViews(list)

	switch strings.ToLower(format) {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	case outputTable, "":
		printSessionTable(w, views)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use table, json or yaml)", format)
	}
}

func printSessionTable(w io.Writer, views []sessionView) {
	if len(views) == 0 {
		fmt.Fprintf(w, "%s\n", text.FgYellow.Sprint("No sessions found"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("ID"),
		text.FgHiCyan.Sprint("ACCOUNT"),
		text.FgHiCyan.Sprint("SCOPES"),
		text.FgHiCyan.Sprint("CREATED"),
	})
	for _, v := range views {
		created := ""
		if !v.CreatedAt.IsZero() {
			created = v.CreatedAt.Local().Format(time.DateTime)
		}
		t.AppendRow(table.Row{v.ID, v.Account, strings.Join(v.Scopes, " "), created})
	}
	t.Render()

	fmt.Fprintf(w, "%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(len(views)),
		text.FgHiBlue.Sprint("sessions"))
}
