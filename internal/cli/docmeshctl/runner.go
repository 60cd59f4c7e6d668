package docmeshctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type command struct {
	method   string
	path     string
	needText bool
	// needKey appends an export object key to path.
	needKey bool
	// raw writes the response body unchanged, for binary downloads.
	raw bool
}

var commands = map[string]command{
	"health":    {method: http.MethodGet, path: "/v1/health"},
	"ready":     {method: http.MethodGet, path: "/v1/ready"},
	"schema":    {method: http.MethodGet, path: "/v1/schema"},
	"refresh":   {method: http.MethodPost, path: "/v1/schema/refresh"},
	"ask":       {method: http.MethodPost, path: "/v1/query", needText: true},
	"interpret": {method: http.MethodPost, path: "/v1/query/interpret", needText: true},
	"export":    {method: http.MethodPost, path: "/v1/query/export", needText: true},
	"fetch":     {method: http.MethodGet, path: "/v1/exports/", needKey: true, raw: true},
	"drop":      {method: http.MethodDelete, path: "/v1/exports/", needKey: true},
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("docmeshctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "docmesh API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout; model calls can be slow (e.g. 60s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	name := strings.TrimSpace(fs.Arg(0))
	cmd, ok := commands[name]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		writeUsage(stderr)
		return 2
	}

	var body []byte
	if cmd.needText {
		text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if text == "" {
			_, _ = fmt.Fprintf(stderr, "%s requires a request text\n\n", name)
			writeUsage(stderr)
			return 2
		}
		encoded, err := json.Marshal(map[string]string{"query": text})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "encode request: %v\n", err)
			return 1
		}
		body = encoded
	}

	path := cmd.path
	if cmd.needKey {
		key := strings.Trim(strings.TrimSpace(fs.Arg(1)), "/")
		if key == "" || fs.NArg() > 2 {
			_, _ = fmt.Fprintf(stderr, "%s requires exactly one export key\n\n", name)
			writeUsage(stderr)
			return 2
		}
		path += key
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, cmd.method, endpoint, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if cmd.raw {
		if _, err := stdout.Write(responseBody); err != nil {
			_, _ = fmt.Fprintf(stderr, "write output: %v\n", err)
			return 1
		}
		return 0
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json, application/vnd.apache.parquet")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

// prettyJSON keeps object key order, which matters for descriptors and
// results.
func prettyJSON(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: docmeshctl [flags] <command> [text...]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health             GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready              GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema             GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  refresh            POST /v1/schema/refresh")
	_, _ = fmt.Fprintln(w, "  ask <text>         POST /v1/query")
	_, _ = fmt.Fprintln(w, "  interpret <text>   POST /v1/query/interpret")
	_, _ = fmt.Fprintln(w, "  export <text>      POST /v1/query/export")
	_, _ = fmt.Fprintln(w, "  fetch <key>        GET /v1/exports/<key> (writes Parquet to stdout)")
	_, _ = fmt.Fprintln(w, "  drop <key>         DELETE /v1/exports/<key>")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
