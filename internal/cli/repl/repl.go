// Package repl is the interactive terminal front end: it prints the known
// databases, then answers one request per input line.
package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/docmesh/docmesh/internal/outcome"
	"github.com/docmesh/docmesh/internal/schema"
)

const DefaultPrompt = "Enter your query: "

type Processor interface {
	Process(ctx context.Context, text string) outcome.Outcome
	Snapshot() *schema.Snapshot
}

type Session struct {
	Processor Processor
	In        io.Reader
	Out       io.Writer
	Prompt    string
}

const exitMessage = "Exiting..."

// Run loops until exit, quit or end of input. Cancelling ctx, as Ctrl-C does,
// ends the session cleanly even while it waits for input.
func (s *Session) Run(ctx context.Context) error {
	out := s.Out
	if out == nil {
		out = io.Discard
	}
	prompt := s.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	if err := RenderDatabases(out, s.Processor.Snapshot()); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	lines := readLines(s.In, done)
	for {
		if ctx.Err() != nil {
			_, _ = fmt.Fprintln(out, exitMessage)
			return nil
		}
		_, _ = fmt.Fprint(out, prompt)
		var next inputLine
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, exitMessage)
			return nil
		case next = <-lines:
		}
		if next.eof {
			_, _ = fmt.Fprintln(out)
			return next.err
		}
		line := strings.TrimSpace(next.text)
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := RenderOutcome(out, s.Processor.Process(ctx, line)); err != nil {
			return err
		}
	}
}

type inputLine struct {
	text string
	eof  bool
	err  error
}

// readLines scans in on its own goroutine so a blocked read never holds up
// cancellation. The goroutine exits once done is closed or input ends.
func readLines(in io.Reader, done <-chan struct{}) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- inputLine{text: scanner.Text()}:
			case <-done:
				return
			}
		}
		select {
		case lines <- inputLine{eof: true, err: scanner.Err()}:
		case <-done:
		}
	}()
	return lines
}

func RenderDatabases(w io.Writer, snapshot *schema.Snapshot) error {
	if snapshot == nil || len(snapshot.Databases) == 0 {
		_, err := fmt.Fprintln(w, pterm.FgYellow.Sprint("No databases found."))
		return err
	}
	items := make([]pterm.BulletListItem, 0, snapshot.CollectionCount()+len(snapshot.Databases))
	for _, db := range snapshot.Databases {
		items = append(items, pterm.BulletListItem{Level: 0, Text: db.Name})
		for _, name := range db.CollectionNames() {
			items = append(items, pterm.BulletListItem{Level: 1, Text: name})
		}
	}
	list, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return fmt.Errorf("render database list: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", pterm.DefaultSection.Sprint("Available databases and collections"), list)
	return err
}

func RenderOutcome(w io.Writer, result outcome.Outcome) error {
	if !result.OK() {
		_, err := fmt.Fprintln(w, pterm.FgRed.Sprint("Error: "+result.Message))
		return err
	}
	data, err := indentJSON(result.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n", pterm.FgGreen.Sprint("Result:"), data); err != nil {
		return err
	}
	if result.Query == nil {
		return nil
	}
	query, err := indentJSON(result.Query)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", pterm.FgCyan.Sprint("Interpreted as:"), query)
	return err
}

func indentJSON(value any) (string, error) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(encoded), nil
}
