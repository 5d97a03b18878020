package build

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ListenOcean/goProxyTool/internal/build/log"

	"github.com/pkg/errors"
)

// CompileLibrary builds the package in `workDir` as a C shared library.
func CompileLibrary(workDir, goPath, library string) error {
	args := []string{"build", "-buildmode=c-shared", "-o", library, "."}
	if _, _, err := ExecuteCmd(workDir, goPath, args, []string{"CGO_ENABLED=1"}); err != nil {
		return errors.Wrapf(err, "compile `%s`", library)
	}
	return nil
}

func ExecuteCmd(workdir string, program string, args []string, env []string) (stdout, stderr []byte, err error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd := exec.Command(program, args...)
	cmd.Dir = workdir
	cmd.Stdout = io.MultiWriter(&stdoutBuf, os.Stdout)
	cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	log.Debug(
		"Exec Command.",
		log.String("workdir", cmd.Dir),
		log.String("program", cmd.Path),
		log.String("args", strings.Join(cmd.Args, " ")),
	)
	cmd.Env = append(os.Environ(), env...)
	err = cmd.Run()
	stdout = stdoutBuf.Bytes()
	stderr = stderrBuf.Bytes()
	if err != nil {
		log.Error(
			"Exec Result.",
			log.String("stdout", stdoutBuf.String()),
			log.String("stderr", stderrBuf.String()),
		)
		return
	}
	log.Debug(
		"Exec Result.",
		log.String("stdout", stdoutBuf.String()),
		log.String("stderr", stderrBuf.String()),
	)
	return
}
