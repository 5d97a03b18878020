package rewrite

import (
	"github.com/ListenOcean/goProxyTool/internal/build/log"

	"github.com/spf13/cobra"
)

// NewRewriteCmd returns the command rewriting `<input>` into `<output>`. It
// takes no flag.
func NewRewriteCmd(use string) *cobra.Command {
	return &cobra.Command{
		Use:                use + " <input> <output>",
		Short:              "Restore the original export names of a built proxy library.",
		Args:               cobra.ExactArgs(2),
		RunE:               RewriteEntry,
		DisableFlagParsing: true,
		SilenceUsage:       true,
	}
}

func RewriteEntry(cmd *cobra.Command, args []string) error {
	if _, err := RewriteFile(args[0], args[1]); err != nil {
		log.Error("Rewrite Fail.", log.String("err", err.Error()))
		return err
	}
	return nil
}
