package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/legal-agent/internal/legal"
	"github.com/thywilljoshua/legal-agent/internal/pipeline"
)

func analyzeCmd(a *app) *cobra.Command {
	var scenario string
	var rules bool
	var out string

	cmd := &cobra.Command{
		Use:   "analyze <pdf>",
		Short: "Summarize a legislation PDF, extract its sections and optionally check compliance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			backend, err := a.cfg.NewBackend(ctx, a.log)
			if err != nil {
				return err
			}
			p, err := a.cfg.NewPipeline(backend, a.cfg.NewLimiter(), a.log)
			if err != nil {
				return err
			}

			doc, err := a.cfg.NewExtractor(a.log).ExtractFile(ctx, args[0])
			if err != nil {
				return err
			}

			in := pipeline.AnalyzeInput{Scenario: strings.TrimSpace(scenario)}
			if rules {
				in.Rules = a.cfg.RuleSet()
				if in.Rules == nil {
					in.Rules = pipeline.DefaultRules
				}
			}
			report, err := p.Analyze(ctx, doc, in)
			if err != nil {
				return err
			}
			return writeReport(cmd, report, out)
		},
	}
	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "scenario to check against the extracted sections")
	cmd.Flags().BoolVar(&rules, "rules", false, "run the legislative rule checks")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the JSON report to this file instead of stdout")
	return cmd
}

func writeReport(cmd *cobra.Command, report legal.Report, out string) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')
	if out == "" {
		_, err = cmd.OutOrStdout().Write(b)
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", out)
	return nil
}
