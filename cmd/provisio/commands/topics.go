package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/provisio-sh/provisio/pkg/docs"
	"github.com/provisio-sh/provisio/pkg/ui"
)

func newTopicsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "topics [topic]",
		Short:     MsgTopicsShort,
		GroupID:   "misc",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: docs.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Println("Available topics:")
				for _, name := range docs.Names() {
					cmd.Printf("  %s\n", name)
				}
				return nil
			}

			requested, err := ui.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			styled := ui.Resolve(requested, os.Stdout) == ui.FormatTerminal

			content, err := docs.Render(args[0], styled)
			if err != nil {
				return err
			}
			cmd.Print(content)
			return nil
		},
	}
}
