package generate

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ListenOcean/goProxyTool/internal/build/log"
	"github.com/ListenOcean/goProxyTool/internal/generate/trampoline"
	"github.com/ListenOcean/goProxyTool/utils"

	"github.com/panjf2000/ants"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Options of a generation run.
type Options struct {
	Schema  string
	Output  string
	Workers int
}

// GenerateAll generates the trampoline of every declaration, `workers` at a
// time. The result keeps the declarations order. When a declaration is
// rejected nothing is returned, and the error lists every rejected one.
func GenerateAll(decls []trampoline.Declaration, workers int) ([]*trampoline.Trampoline, error) {
	if len(decls) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	trampolines := make([]*trampoline.Trampoline, len(decls))
	errs := make([]error, len(decls))
	var wg sync.WaitGroup
	for i := range decls {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = errors.Errorf("generation panicked: %v", r)
				}
			}()
			trampolines[i], errs[i] = trampoline.Generate(decls[i].Signature, decls[i].Config)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = errors.Wrap(err, "submit generation task")
		}
	}
	wg.Wait()

	for i, e := range errs {
		if e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "declaration %d `%s`", i, decls[i].Signature.Name))
		}
	}
	if err != nil {
		return nil, err
	}
	return trampolines, nil
}

// Run generates the file declared by the schema at `opts.Schema` into
// `opts.Output`. The output is left untouched when its content would not
// change. It returns whether the output was written.
func Run(opts Options) (written bool, err error) {
	schema, err := ReadSchema(opts.Schema)
	if err != nil {
		return false, err
	}
	decls, err := Declarations(schema)
	if err != nil {
		return false, errors.Wrapf(err, "schema `%s`", opts.Schema)
	}
	log.Debug("Schema loaded.", log.String("schema", opts.Schema), log.Int("functions", len(decls)))

	trampolines, err := GenerateAll(decls, opts.Workers)
	if err != nil {
		return false, err
	}
	src, err := trampoline.Render(schema.Package, schema.Headers, trampolines)
	if err != nil {
		return false, errors.Wrap(err, "print generated file")
	}

	same, err := utils.SameContent(opts.Output, src)
	if err != nil {
		return false, err
	}
	if same {
		log.Info("Generated file up to date.", log.String("output", opts.Output))
		return false, nil
	}
	if err := utils.WriteFileAtomic(opts.Output, src, 0o644); err != nil {
		return false, err
	}
	log.Info("Generated file written.",
		log.String("output", opts.Output),
		log.Int("trampolines", len(trampolines)),
		log.String("digest", fmt.Sprintf("%016x", utils.Digest(src))),
	)
	return true, nil
}
