package build

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/build/log"
	"github.com/ListenOcean/goProxyTool/internal/generate"
	"github.com/ListenOcean/goProxyTool/internal/rewrite"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Options of the build pipeline.
type Options struct {
	generate.Options
	// Directory of the Go package the proxy library is built from.
	PackageDir string
	// Path of the proxy library to produce.
	Library string
}

// NewBuildCmd returns the `build` command: generate, compile, rewrite.
func NewBuildCmd() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:          "build",
		Short:        "Build a proxy library from a schema.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return BuildEntry(opts)
		},
	}
	generate.AddFlags(cmd, &opts.Options)
	cmd.Flags().StringVarP(&opts.PackageDir, "dir", "d", ".", "directory of the Go package holding the hooks")
	cmd.Flags().StringVarP(&opts.Library, "output", "o", "", "proxy library to build")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func BuildEntry(opts Options) (err error) {
	defer func() {
		if err != nil {
			log.Error("Build Fail.", log.String("err", err.Error()))
		}
	}()

	workDir, err := filepath.Abs(opts.PackageDir)
	if err != nil {
		return err
	}
	library, err := filepath.Abs(opts.Library)
	if err != nil {
		return err
	}
	goPath, err := GoBinary()
	if err != nil {
		return err
	}

	opts.Output = filepath.Join(workDir, configs.GeneratedFile)
	if _, err = generate.Run(opts.Options); err != nil {
		return err
	}
	if err = CompileLibrary(workDir, goPath, library); err != nil {
		return err
	}
	_, err = rewrite.RewriteFile(library, library)
	return err
}

// GoBinary returns the go command to build with, PROXYGEN_GO_BIN first.
func GoBinary() (string, error) {
	if customGoBin := os.Getenv(configs.TagCustomGoBin); customGoBin != "" {
		return customGoBin, nil
	}
	goPath, err := exec.LookPath("go")
	if err != nil {
		return "", errors.Wrap(err, "look up the go command")
	}
	return goPath, nil
}
