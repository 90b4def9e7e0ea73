package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"markestedt/datepaste/config"
	"markestedt/datepaste/stamp"
	"markestedt/datepaste/storage"
	"markestedt/datepaste/web"
)

func newPasteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "paste <date|time|datetime>",
		Short:     "Ask the running agent to paste the current date/time",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"date", "time", "datetime"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := stamp.ParseKind(args[0])
			if err != nil {
				return err
			}
			client, err := agentClient(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			return client.PasteKind(ctx, kind)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "text <text>",
		Short: "Ask the running agent to paste arbitrary text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := agentClient(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			return client.PasteText(ctx, strings.Join(args, " "))
		},
	})
	return cmd
}

func agentClient(opts *rootOptions) (*web.Client, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if !cfg.Web.Enabled {
		return nil, fmt.Errorf("the local API is disabled in %s", cfg.Path())
	}
	return web.NewClient(cfg.Web.Port), nil
}

func newRenderer(cfg *config.Config) *stamp.Renderer {
	return stamp.NewRenderer(stamp.NewCatalog(cfg.Format.Custom), cfg.Format.Selection())
}

func newFormatsCmd(opts *rootOptions) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List available date and time formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			r := newRenderer(cfg)

			formats := r.Catalog().All()
			if kindFlag != "" {
				kind, err := stamp.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				formats = r.Catalog().ByKind(kind)
			}

			renderFormats(cmd.OutOrStdout(), r, formats, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "type", "", "only list formats of this type (date, time, datetime)")
	return cmd
}

func renderFormats(w io.Writer, r *stamp.Renderer, formats []stamp.Format, now time.Time) {
	sel := r.Selection()
	loc := r.Timezone().Location()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"", "ID", "Type", "Format", "Example"})
	for _, f := range formats {
		mark := ""
		if sel.FormatID(f.Kind) == f.ID {
			mark = "*"
		}
		t.AppendRow(table.Row{mark, f.ID, string(f.Kind), f.Pattern, stamp.Apply(f.Pattern, now.In(loc))})
	}
	t.Render()
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show what each shortcut would paste right now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			renderPreview(cmd.OutOrStdout(), cfg, newRenderer(cfg), time.Now())
			return nil
		},
	}
}

func renderPreview(w io.Writer, cfg *config.Config, r *stamp.Renderer, now time.Time) {
	sel := r.Selection()
	hotkeys := cfg.Hotkeys.Bindings()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Type", "Shortcut", "Format", "Value"})
	for _, kind := range stamp.Kinds {
		f := r.Catalog().Resolve(kind, sel.FormatID(kind))
		t.AppendRow(table.Row{string(kind), hotkeys[kind], f.ID, r.Render(kind, now)})
	}
	t.AppendFooter(table.Row{"", "", "Timezone", r.Timezone().String()})
	t.Render()
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pastes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			db, err := storage.Open(cfg.Dir())
			if err != nil {
				return err
			}
			defer db.Close()

			pastes, err := db.GetPastes(limit, offset)
			if err != nil {
				return err
			}
			total, err := db.GetPasteCount()
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), pastes, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of entries to skip")
	return cmd
}

func renderHistory(w io.Writer, pastes []storage.Paste, total int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Time", "Source", "Type", "Text", "OK", "Duration"})
	for _, p := range pastes {
		ok := "yes"
		if !p.Success() {
			ok = "no"
		}
		t.AppendRow(table.Row{
			p.ID,
			p.Timestamp.Local().Format("2006-01-02 15:04:05"),
			p.Source,
			p.Kind,
			truncate(p.Text, 40),
			ok,
			fmt.Sprintf("%dms", p.DurationMs),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d of %d", len(pastes), total), "", ""})
	t.Render()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
