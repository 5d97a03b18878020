package generate

import (
	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/build/log"

	"github.com/spf13/cobra"
)

// NewGenerateCmd returns the `generate` command.
func NewGenerateCmd() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate the forwarding trampolines declared by a schema.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := Run(opts); err != nil {
				log.Error("Generate Fail.", log.String("err", err.Error()))
				return err
			}
			return nil
		},
	}
	AddFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", configs.GeneratedFile, "generated Go file")
	return cmd
}

// AddFlags adds the flags shared by the commands running a generation.
func AddFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Schema, "schema", "f", "proxy.yaml", "schema file declaring the proxied functions")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "number of parallel generation workers, 0 for one per CPU")
}
