package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provisio-sh/provisio/pkg/config"
	"github.com/provisio-sh/provisio/pkg/platform"
	"github.com/provisio-sh/provisio/pkg/provision"
)

func newPlanCmd(flags *rootFlags) *cobra.Command {
	var (
		osRelease  string
		stepsFile  string
		configPath string
	)

	cmd := &cobra.Command{
		Use:     "plan",
		Short:   MsgPlanShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
			}
			overrides, err := config.LoadStepOverrides(stepsFile)
			if err != nil {
				return err
			}
			cfg.Steps = config.MergeOverrides(cfg.Steps, overrides)

			variant, err := platform.Detect(osRelease)
			if err != nil {
				return err
			}

			cmd.Printf("Host variant: %s\n\n", variant)
			for _, step := range provision.Catalog() {
				cmd.Println(planLine(step, variant, cfg.Steps[step.Name]))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&osRelease, "os-release", platform.DefaultOSReleasePath, MsgFlagRelease)
	cmd.Flags().StringVar(&stepsFile, "steps-file", config.StepOverridesPath, MsgFlagSteps)
	cmd.Flags().StringVar(&configPath, "config", config.SystemConfigPath, MsgFlagConfig)

	return cmd
}

func planLine(step provision.Step, variant platform.Variant, override config.Override) string {
	disposition := "run"
	switch {
	case override.Enabled != nil && !*override.Enabled:
		disposition = "skip (disabled)"
	case !step.AppliesTo(variant):
		disposition = fmt.Sprintf("skip (not for %s)", variant)
	}

	critical := step.Critical
	if override.Critical != nil {
		critical = *override.Critical
	}

	attrs := ""
	if critical {
		attrs += " [critical]"
	}
	if step.Retryable {
		attrs += " [retried]"
	}

	return fmt.Sprintf("%-20s %-22s %s%s", step.Name, disposition, step.Description, attrs)
}
