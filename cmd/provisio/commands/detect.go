package commands

import (
	"github.com/spf13/cobra"

	"github.com/provisio-sh/provisio/pkg/platform"
)

func newDetectCmd() *cobra.Command {
	var osRelease string

	cmd := &cobra.Command{
		Use:     "detect",
		Short:   MsgDetectShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := platform.Detect(osRelease)
			if err != nil {
				return err
			}
			cmd.Println(variant.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&osRelease, "os-release", platform.DefaultOSReleasePath, MsgFlagRelease)

	return cmd
}
