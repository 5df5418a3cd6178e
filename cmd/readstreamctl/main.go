// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Command readstreamctl drives a running readstream server over its HTTP API.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var version = "dev"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	server     string
	timeout    time.Duration
	jsonOutput bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "readstreamctl",
		Short:         "Control a readstream server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	defaultServer := os.Getenv("READSTREAM_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8087"
	}
	root.PersistentFlags().StringVarP(&g.server, "server", "s", defaultServer, "Server base URL (env READSTREAM_URL)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 5*time.Minute, "Request timeout")
	root.PersistentFlags().BoolVarP(&g.jsonOutput, "json", "j", false, "Output as JSON")

	root.AddCommand(
		newCollectCmd(g),
		newSourcesCmd(g),
		newTestSourceCmd(g),
		newRunsCmd(g),
		newRecommendCmd(g),
		newInvalidateCmd(g),
	)
	return root
}

func (g *globals) client() *client {
	return newClient(g.server, g.timeout)
}

func newCollectCmd(g *globals) *cobra.Command {
	var (
		srcs   []string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run a collection pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := g.client().collect(cmd.Context(), srcs, dryRun)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s: %s\n", res.RunID, res.State)
			fmt.Fprintf(w, "  sources  %d/%d ok\n", res.FeedsSucceeded, res.FeedsAttempted)
			fmt.Fprintf(w, "  found    %d\n", res.ItemsFound)
			fmt.Fprintf(w, "  added    %d (skipped %d, over cap %d)\n", res.NewItemsAdded, res.SkippedExisting, res.DroppedOverCap)
			if !res.DryRun {
				fmt.Fprintf(w, "  synced   %d\n", res.SyncedCount)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(w, "  error    %s: %s\n", e.Source, e.Error)
			}
			if res.DryRun {
				for _, item := range res.Items {
					fmt.Fprintf(w, "  - %s  %s\n", item.Title, item.ArticleURL)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&srcs, "source", nil, "Restrict to these sources (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch and normalize without storing or syncing")
	return cmd
}

func newSourcesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the source catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := g.client().sources(cmd.Context())
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), list)
			}
			for _, s := range list {
				mark := ""
				if !s.Configured {
					mark = " (missing credential)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-6s %s%s\n", s.Name, s.Kind, strings.Join(s.Tags, ","), mark)
			}
			return nil
		},
	}
}

func newTestSourceCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "test-source NAME",
		Short: "Fetch one source without storing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().testSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			if !res.Success {
				fmt.Fprintf(w, "%s: failed after %dms: %s\n", res.Source.Name, res.DurationMS, res.Error)
				return nil
			}
			fmt.Fprintf(w, "%s: %d items in %dms\n", res.Source.Name, res.ItemsFound, res.DurationMS)
			for _, item := range res.Items {
				fmt.Fprintf(w, "  - %s  %s\n", item.Title, item.ArticleURL)
			}
			return nil
		},
	}
}

func newRunsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect collection run records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Show the most recent live run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := g.client().latestRun(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), run)
		},
	}, &cobra.Command{
		Use:   "get RUN_ID",
		Short: "Show one run by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := g.client().run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), run)
		},
	})
	return cmd
}

func newRecommendCmd(g *globals) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "recommend USER_ID",
		Short: "Fetch recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().recommend(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d recommendations for %s (source %s, cached %t, backfilled %d)\n",
				len(res.Items), res.UserID, res.Source, res.Cached, res.Backfilled)
			for i, rec := range res.Items {
				fmt.Fprintf(w, "%3d. [%.3f] %s\n     %s\n", i+1, rec.Score, rec.Title, rec.URL)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of items (server default when 0)")
	return cmd
}

func newInvalidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate USER_ID",
		Short: "Drop a user's cached recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := g.client().invalidate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"userId": args[0], "invalidated": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %d cached entries for %s\n", n, args[0])
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
