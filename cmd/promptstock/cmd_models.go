package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"promptstock/internal/common/fsutil"
	"promptstock/internal/registry"
)

func newModelsCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List supported vision models and which are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Models.Dir
			}
			d, err := fsutil.ExpandHome(dir)
			if err != nil {
				return err
			}
			installed, err := registry.LoadDir(d)
			if err != nil {
				return err
			}
			have := make(map[string]bool, len(installed))
			for _, m := range installed {
				have[m.ModelID] = true
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tMIN RAM\tINSTALLED\tACTIVE")
			for _, m := range registry.Supported() {
				size := registry.FormatBytes(m.Weights.Size + m.Projector.Size)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dGB\t%v\t%v\n", m.ID, m.DisplayName, size, m.MinRAMGB, have[m.ID], m.ID == a.cfg.Models.Active)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			used, err := fsutil.DirSize(d)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "\nmodels dir: %s (%s used)\n", d, registry.FormatBytes(used))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Models directory (defaults to models.dir)")
	return cmd
}
