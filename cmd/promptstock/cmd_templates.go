package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"promptstock/internal/history"
	"promptstock/internal/prompt"
	"promptstock/pkg/types"
)

// lookupTemplate resolves built-ins without touching storage; custom IDs
// open the history database.
func (a *app) lookupTemplate(ctx context.Context, id string) (types.Template, error) {
	if t, ok := prompt.Lookup(id); ok {
		return t, nil
	}
	st, err := a.openStore()
	if err != nil {
		return types.Template{}, err
	}
	defer st.Close()
	return prompt.Resolve(ctx, history.NewTemplates(st), id)
}

func newTemplatesCmd(a *app) *cobra.Command {
	var builtinOnly bool
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List analysis templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var src prompt.CustomSource
			if !builtinOnly {
				st, err := a.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				src = history.NewTemplates(st)
			}
			all, err := prompt.All(cmd.Context(), src)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCUSTOM")
			for _, t := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", t.ID, t.Name, t.Category, t.IsCustom)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&builtinOnly, "builtin", false, "Skip custom templates stored in history")
	return cmd
}
