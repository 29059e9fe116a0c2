package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptstock/internal/llm"
	"promptstock/internal/prompt"
	"promptstock/pkg/types"
)

func newPromptCmd(a *app) *cobra.Command {
	var (
		templateID string
		images     int
		mode       string
		vars       []string
		text       string
		copyOut    bool
	)
	cmd := &cobra.Command{
		Use:     "prompt",
		Short:   "Build the analysis prompt for a template",
		Example: "  promptstock prompt --template risk-analysis --images 3\n  promptstock prompt --template rebalancing --mode local --var targetAllocation='주식 70% / 채권 30%'",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := types.Mode(mode)
			if m == "" {
				m = a.cfg.LLM.Mode
			}
			if !m.Valid() {
				return fmt.Errorf("unknown mode %q", mode)
			}
			if images < 0 {
				return fmt.Errorf("--images must not be negative")
			}
			inputs, err := parseVars(vars)
			if err != nil {
				return err
			}
			t, err := a.lookupTemplate(cmd.Context(), templateID)
			if err != nil {
				return err
			}
			p := prompt.Generate(t, prompt.Options{ImageCount: images, Mode: m, Inputs: inputs, PortfolioText: text})
			if copyOut {
				if err := (llm.SystemClipboard{}).WriteAll(p); err != nil {
					return err
				}
				fmt.Fprintf(a.errOut, "copied %d characters (~%d tokens)\n", len([]rune(p)), prompt.EstimateTokens(p))
			}
			fmt.Fprintln(a.out, p)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&templateID, "template", "t", "risk-analysis", "Template ID (built-in or custom)")
	f.IntVarP(&images, "images", "n", 1, "Number of screenshots the prompt refers to")
	f.StringVar(&mode, "mode", "", "Execution mode the prompt is shaped for: clipboard|local")
	f.StringArrayVar(&vars, "var", nil, "Template variable as key=value (repeatable)")
	f.StringVar(&text, "text", "", "Recognized portfolio text to append instead of images")
	f.BoolVar(&copyOut, "copy", false, "Also copy the prompt to the system clipboard")
	return cmd
}
