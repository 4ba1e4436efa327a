package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/provisio-sh/provisio/pkg/command"
	"github.com/provisio-sh/provisio/pkg/config"
	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/logging"
	"github.com/provisio-sh/provisio/pkg/platform"
	"github.com/provisio-sh/provisio/pkg/preflight"
	"github.com/provisio-sh/provisio/pkg/provision"
	"github.com/provisio-sh/provisio/pkg/style"
	"github.com/provisio-sh/provisio/pkg/ui"
	"github.com/provisio-sh/provisio/pkg/workdir"
)

func newProvisionCmd(flags *rootFlags) *cobra.Command {
	var (
		reportPath  string
		osRelease   string
		stepsFile   string
		configPath  string
		workdirBase string
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:     "provision",
		Short:   MsgProvisionShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]interface{}{}
			if cmd.Flags().Changed("workdir") {
				overrides["workdir.base"] = workdirBase
			}
			if cmd.Flags().Changed("max-attempts") {
				overrides["retry.max_attempts"] = maxAttempts
			}
			return runProvision(cmd, flags, reportPath, osRelease, stepsFile, configPath, overrides)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", MsgFlagReport)
	cmd.Flags().StringVar(&osRelease, "os-release", platform.DefaultOSReleasePath, MsgFlagRelease)
	cmd.Flags().StringVar(&stepsFile, "steps-file", config.StepOverridesPath, MsgFlagSteps)
	cmd.Flags().StringVar(&configPath, "config", config.SystemConfigPath, MsgFlagConfig)
	cmd.Flags().StringVar(&workdirBase, "workdir", "", MsgFlagWorkdir)
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, MsgFlagAttempts)

	return cmd
}

func runProvision(cmd *cobra.Command, flags *rootFlags, reportPath, osRelease, stepsFile, configPath string, overrides map[string]interface{}) error {
	logger := logging.GetLogger("provision")

	requested, err := ui.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	renderer := style.NewRenderer(ui.Resolve(requested, os.Stdout))

	cfg, err := config.LoadWithOverrides(configPath, overrides)
	if err != nil {
		return err
	}
	stepOverrides, err := config.LoadStepOverrides(stepsFile)
	if err != nil {
		return err
	}
	cfg.Steps = config.MergeOverrides(cfg.Steps, stepOverrides)

	runner := command.NewSystemRunner()

	// Preconditions first: nothing may be touched without privilege and
	// a resolvable principal.
	principal, err := preflight.New(runner).Validate(cmd.Context())
	if err != nil {
		return err
	}

	// Variant is detected exactly once, before any guard is evaluated.
	variant, err := platform.Detect(osRelease)
	if err != nil {
		return err
	}

	// Working directory plus its cleanup guarantee. The defer covers
	// every exit path out of this function, interrupts included.
	wd, err := workdir.Acquire(cfg.Workdir.Base)
	if err != nil {
		return err
	}
	defer wd.Release()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := &provision.RunContext{
		Principal: principal,
		Variant:   variant,
		WorkDir:   wd.Path(),
		Runner:    runner,
		Config:    cfg,
	}

	logger.Info().
		Stringer("variant", variant).
		Str("principal", principal.Username).
		Bool("dryRun", flags.dryRun).
		Msg("Starting provisioning run")

	records, runErr := provision.NewRunner(flags.dryRun).Run(ctx, provision.Catalog(), rc)

	cmd.Print(renderer.RenderReport(variant.String(), records))

	if reportPath != "" {
		if err := provision.WriteReport(reportPath, rc, records); err != nil {
			logger.Warn().Err(err).Msg("Failed to write run report")
		}
	}

	if runErr != nil {
		if errors.IsErrorCode(runErr, errors.ErrInterrupted) {
			logger.Warn().Msg("Provisioning interrupted by operator")
		}
		return runErr
	}

	if summary := provision.Summarize(records); !summary.Clean() {
		logger.Warn().
			Int("failed", summary.Failed).
			Msg("Run completed with non-critical failures")
	}

	return nil
}
