package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docmesh/docmesh/internal/assistant"
	"github.com/docmesh/docmesh/internal/bootstrap"
	"github.com/docmesh/docmesh/internal/cli/repl"
	"github.com/docmesh/docmesh/internal/config"
	"github.com/docmesh/docmesh/internal/observability"
	"github.com/docmesh/docmesh/internal/store"
)

var errQueryFailed = errors.New("query failed")

// newRootCommand builds the command tree. lookup resolves configuration from
// the environment.
func newRootCommand(lookup config.LookupFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "docmesh",
		Short:         "Ask a document database questions in plain language",
		Long:          "docmesh translates natural-language requests into document-database operations and runs them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAssistant(cmd, lookup, func(ctx context.Context, a *assistant.Assistant) error {
				session := &repl.Session{
					Processor: a,
					In:        cmd.InOrStdin(),
					Out:       cmd.OutOrStdout(),
				}
				return session.Run(ctx)
			})
		},
	}
	root.AddCommand(newAskCommand(lookup), newSchemaCommand(lookup))
	return root
}

func newAskCommand(lookup config.LookupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <request...>",
		Short: "Answer a single request and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("request must not be empty")
			}
			return withAssistant(cmd, lookup, func(ctx context.Context, a *assistant.Assistant) error {
				result := a.Process(ctx, text)
				if err := repl.RenderOutcome(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.OK() {
					return errQueryFailed
				}
				return nil
			})
		},
	}
}

func newSchemaCommand(lookup config.LookupFunc) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List databases and collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAssistant(cmd, lookup, func(_ context.Context, a *assistant.Assistant) error {
				if !asJSON {
					return repl.RenderDatabases(cmd.OutOrStdout(), a.Snapshot())
				}
				encoded, err := json.MarshalIndent(a.Snapshot(), "", "  ")
				if err != nil {
					return fmt.Errorf("encode schema: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full schema snapshot as JSON")
	return cmd
}

// withAssistant opens the configured store, builds the assistant and closes
// the store once run returns.
func withAssistant(cmd *cobra.Command, lookup config.LookupFunc, run func(context.Context, *assistant.Assistant) error) error {
	cfg, err := config.Load("docmesh", lookup)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.NewLogger(cfg, cmd.ErrOrStderr())

	documentStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(documentStore, logger)

	a, err := bootstrap.NewAssistant(ctx, cfg, documentStore, logger)
	if err != nil {
		return err
	}
	return run(ctx, a)
}

func closeStore(documentStore store.Store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := documentStore.Close(ctx); err != nil {
		logger.Warn("failed to close document store", slog.Any("error", err))
	}
}
