package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"promptstock/internal/history"
	"promptstock/internal/prompt"
	"promptstock/pkg/types"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage saved analyses",
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistorySearchCmd(a),
		newHistoryShowCmd(a),
		newHistoryDeleteCmd(a),
		newHistoryExportCmd(a),
		newHistoryImportCmd(a),
		newHistoryStatsCmd(a),
	)
	return cmd
}

// withAnalyses opens the store for the duration of fn.
func (a *app) withAnalyses(fn func(*history.Analyses) error) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(history.NewAnalyses(st))
}

func printAnalyses(w io.Writer, list []types.Analysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTEMPLATE\tIMAGES\tTAGS\tRESPONSE")
	for _, an := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%v\t%s\n",
			an.ID, an.CreatedAt.Local().Format("2006-01-02 15:04"), an.TemplateName,
			an.ImageCount, an.Tags, prompt.Preview(an.AIResponse, 40))
	}
	return tw.Flush()
}

func newHistoryListCmd(a *app) *cobra.Command {
	var f history.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyses(func(r *history.Analyses) error {
				list, err := r.Query(cmd.Context(), f)
				if err != nil {
					return err
				}
				return printAnalyses(a.out, list)
			})
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&f.Tags, "tag", nil, "Only analyses with any of these tags")
	fl.StringSliceVar(&f.TemplateNames, "template", nil, "Only analyses of these template names")
	fl.StringVar(&f.SortBy, "sort", "date", "Sort by date|name")
	fl.StringVar(&f.Order, "order", "desc", "Order asc|desc")
	return cmd
}

func newHistorySearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search template name, note and response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyses(func(r *history.Analyses) error {
				list, err := r.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printAnalyses(a.out, list)
			})
		},
	}
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one analysis as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyses(func(r *history.Analyses) error {
				an, err := r.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("analysis %s: %w", args[0], err)
				}
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(an)
			})
		},
	}
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete <id> [id ...]",
		Short: "Delete analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("delete requires at least one id, or --all")
			}
			return a.withAnalyses(func(r *history.Analyses) error {
				if all {
					return r.Clear(cmd.Context())
				}
				return r.DeleteMany(cmd.Context(), args)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every analysis")
	return cmd
}

func newHistoryExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyses(func(r *history.Analyses) error {
				data, err := r.Export(cmd.Context())
				if err != nil {
					return err
				}
				w := a.out
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(data)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "Output file, - for stdout")
	return cmd
}

func newHistoryImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported history file; existing IDs are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var data history.ExportData
			if err := json.Unmarshal(b, &data); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			return a.withAnalyses(func(r *history.Analyses) error {
				n, err := r.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "imported %d analyses\n", n)
				return nil
			})
		},
	}
}

func newHistoryStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize saved analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyses(func(r *history.Analyses) error {
				s, err := r.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "analyses: %d\ntags: %d\n", s.TotalAnalyses, s.TotalTags)
				if s.Oldest != nil {
					fmt.Fprintf(a.out, "oldest: %s\nnewest: %s\n", s.Oldest.Local().Format("2006-01-02"), s.Newest.Local().Format("2006-01-02"))
				}
				return nil
			})
		},
	}
}
