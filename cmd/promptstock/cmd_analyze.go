package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"promptstock/internal/controller"
	"promptstock/internal/history"
	"promptstock/internal/llm"
	"promptstock/internal/prompt"
	"promptstock/pkg/types"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		mode       string
		modelID    string
		templateID string
		text       string
		vars       []string
		save       bool
		note       string
		tags       []string
	)
	cmd := &cobra.Command{
		Use:   "analyze [image ...]",
		Short: "Run an analysis on portfolio screenshots",
		Example: "  promptstock analyze --mode local shot1.jpg shot2.png\n" +
			"  promptstock analyze --template checklist --save shot.jpg\n" +
			"  promptstock analyze --prompt '이 포트폴리오의 위험도를 평가해주세요' shot.jpg",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if mode != "" {
				cfg.LLM.Mode = types.Mode(mode)
			}
			if modelID != "" {
				cfg.Models.Active = modelID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			images := make([]string, 0, len(args))
			for _, p := range args {
				b, err := os.ReadFile(p)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				images = append(images, llm.EncodeImage(b))
			}

			p := text
			tmplName := "직접 입력"
			var tmplID string
			if p == "" {
				inputs, err := parseVars(vars)
				if err != nil {
					return err
				}
				t, err := a.lookupTemplate(cmd.Context(), templateID)
				if err != nil {
					return err
				}
				tmplName, tmplID = t.Name, t.ID
				p = prompt.Generate(t, prompt.Options{ImageCount: len(images), Mode: cfg.LLM.Mode, Inputs: inputs})
			}

			pub := logPublisher{log: a.log}
			settings, err := a.resolve(cfg, pub)
			if err != nil {
				return err
			}
			ctrl := controller.New(controller.Config{
				Source:    func() llm.Settings { return settings },
				Logger:    &a.log,
				Publisher: pub,
			})
			defer ctrl.Close()
			show := printProgress(a.errOut)
			stop := ctrl.Watch(func(s controller.State) {
				if s.Progress != nil {
					show(*s.Progress)
				}
			})
			defer stop()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			res, err := ctrl.Execute(ctx, p, images)
			if err != nil {
				var e *llm.Error
				if errors.As(err, &e) {
					return fmt.Errorf("%s", e.UserMessage())
				}
				return err
			}

			if cfg.LLM.Mode == types.ModePassthrough {
				fmt.Fprintf(a.errOut, "prompt copied to clipboard; paste it into your assistant with the %d screenshot(s)\n", len(images))
			} else {
				fmt.Fprintln(a.out, res.Text)
				fmt.Fprintf(a.errOut, "\n%s, %dms, %d tokens\n", res.ModelIdentifier, res.ElapsedMs, res.TokenCount)
			}

			if save {
				return a.saveAnalysis(cmd.Context(), types.Analysis{
					TemplateID:      tmplID,
					TemplateName:    tmplName,
					GeneratedPrompt: p,
					Mode:            cfg.LLM.Mode,
					ImageCount:      len(images),
					UserNote:        note,
					Tags:            tags,
					AIResponse:      res.Text,
					ModelIdentifier: res.ModelIdentifier,
					ElapsedMs:       res.ElapsedMs,
				})
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "", "Execution mode: clipboard|local (defaults to llm.mode)")
	f.StringVar(&modelID, "model", "", "Model ID for local mode (defaults to models.active)")
	f.StringVarP(&templateID, "template", "t", "risk-analysis", "Template ID")
	f.StringVar(&text, "prompt", "", "Use this prompt text instead of a template")
	f.StringArrayVar(&vars, "var", nil, "Template variable as key=value (repeatable)")
	f.BoolVar(&save, "save", false, "Save the analysis to history")
	f.StringVar(&note, "note", "", "Note stored with --save")
	f.StringSliceVar(&tags, "tag", nil, "Tags stored with --save")
	return cmd
}

func (a *app) saveAnalysis(ctx context.Context, an types.Analysis) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	if an.TemplateID != "" {
		if _, ok := prompt.Lookup(an.TemplateID); !ok {
			if err := history.NewTemplates(st).IncrementUsage(ctx, an.TemplateID); err != nil {
				a.log.Warn().Err(err).Str("template", an.TemplateID).Msg("event=template_usage_error")
			}
		}
	}
	saved, err := history.NewAnalyses(st).Save(ctx, an)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "saved analysis %s\n", saved.ID)
	return nil
}
