// Command proxyrewrite restores the original export names of a compiled proxy
// library:
//
//	proxyrewrite <input> <output>
package main

import (
	"os"

	"github.com/ListenOcean/goProxyTool/internal/build/log"
	"github.com/ListenOcean/goProxyTool/internal/rewrite"
)

func main() {
	log.Init(log.ConsoleMode)
	err := rewrite.NewRewriteCmd("proxyrewrite").Execute()
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}
