package main

import (
	"os"
	"strings"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/build"
	"github.com/ListenOcean/goProxyTool/internal/build/log"
	"github.com/ListenOcean/goProxyTool/internal/generate"
	"github.com/ListenOcean/goProxyTool/internal/rewrite"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:               "proxygen",
	Short:             "Generate and finalize proxy libraries.",
	Version:           configs.Version,
	TraverseChildren:  true,
	DisableAutoGenTag: true,
}

func init() {
	rootCmd.AddCommand(generate.NewGenerateCmd())
	rootCmd.AddCommand(rewrite.NewRewriteCmd("rewrite"))
	rootCmd.AddCommand(build.NewBuildCmd())
}

func main() {
	log.InitLog()
	log.Debug("Program Args.", log.String("args", strings.Join(os.Args, ", ")))

	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}
