// Package rewrite restores the original names a built proxy library looks
// its real functions up under.
//
// The generated code resolves every real function by the name
// `<name>_external`. Once compiled, that name sits in a null-terminated
// string. Writing a zero over the `_` of the suffix shortens the string to
// `<name>` without moving any byte of the file:
//
//	f o o _ e x t e r n a l \0   =>   f o o \0 e x t e r n a l \0
//
// The trailing `external\0` is left in place and is never reached by a
// string reader.
package rewrite

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/build/log"
	"github.com/ListenOcean/goProxyTool/utils"

	"github.com/pkg/errors"
)

// Rewrite truncates, in place, every non-overlapping occurrence of the export
// marker found in `image` and returns their offsets. The length of `image`
// never changes.
func Rewrite(image []byte) (offsets []int) {
	marker := configs.ExportMarker
	for i := 0; i <= len(image)-len(marker); {
		at := bytes.Index(image[i:], marker)
		if at == -1 {
			break
		}
		at += i
		image[at] = 0
		offsets = append(offsets, at)
		i = at + len(marker)
	}
	return offsets
}

// Result describes one rewritten file.
type Result struct {
	Size         int
	Offsets      []int
	InputDigest  uint64
	OutputDigest uint64
}

// RewriteFile reads the whole file at `input`, rewrites it and writes it to
// `output`. The output is written atomically with the input's permissions;
// `input` and `output` may be the same path. A file without any marker is
// copied unchanged.
func RewriteFile(input, output string) (*Result, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrapf(err, "stat input `%s`", input)
	}
	image, err := os.ReadFile(input)
	if err != nil {
		return nil, errors.Wrapf(err, "read input `%s`", input)
	}

	res := &Result{
		Size:        len(image),
		InputDigest: utils.Digest(image),
	}
	res.Offsets = Rewrite(image)
	res.OutputDigest = utils.Digest(image)

	if err := utils.WriteFileAtomic(output, image, info.Mode().Perm()); err != nil {
		return nil, errors.Wrapf(err, "write output `%s`", output)
	}

	log.Info("Export names rewritten.",
		log.String("input", input),
		log.String("output", output),
		log.Int("size", res.Size),
		log.Int("rewritten", len(res.Offsets)),
		log.String("inputDigest", digestString(res.InputDigest)),
		log.String("outputDigest", digestString(res.OutputDigest)),
	)
	for _, offset := range res.Offsets {
		log.Debug("Export marker truncated.", log.String("name", nameAt(image, offset)), log.Int("offset", offset))
	}
	return res, nil
}

// nameAt returns the null-terminated name ending at the truncated offset.
func nameAt(image []byte, offset int) string {
	start := bytes.LastIndexByte(image[:offset], 0) + 1
	return string(image[start:offset])
}

func digestString(d uint64) string {
	return fmt.Sprintf("%016x", d)
}
