package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "promptstock",
		Short:         "Portfolio screenshot analysis prompts, run on-device or via clipboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error|off")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: json|console")

	root.AddCommand(
		newPromptCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
		newModelsCmd(a),
		newTemplatesCmd(a),
		newHistoryCmd(a),
	)
	return root
}
