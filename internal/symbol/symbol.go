// Package symbol derives the identifiers a trampoline is wired with.
package symbol

import (
	"fmt"

	"github.com/ListenOcean/goProxyTool/configs"
)

// Names are the identifiers derived from a proxied function name.
type Names struct {
	// Go call wrapper around the foreign entry point.
	Internal string
	// Name the real implementation is looked up under until the export
	// rewriter truncates it.
	External string
	// C forwarder the call wrapper goes through.
	Forward string
}

func Derive(name string) Names {
	return Names{
		Internal: name + configs.InternalSuffix,
		External: name + configs.ExternalSuffix,
		Forward:  fmt.Sprintf(configs.ForwardIdentFormat, name),
	}
}
