package configs

// Schema is the declaration file read by the generator. Every entry of
// Functions becomes one forwarding trampoline in the generated file.
type Schema struct {
	Package   string     `yaml:"package"`
	Headers   []string   `yaml:"headers"`
	Functions []Function `yaml:"functions"`
}

// Function holds the signature of a proxied function along with its proxy
// options. Lib is mandatory, Before and After are optional hook names.
type Function struct {
	Name    string  `yaml:"name"`
	Params  []Param `yaml:"params"`
	Returns string  `yaml:"returns"`
	Lib     string  `yaml:"lib"`
	Before  string  `yaml:"before"`
	After   string  `yaml:"after"`
}

type Param struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Receiver bool   `yaml:"receiver"`
}

// 环境变量
const (
	TagCustomGoBin = "PROXYGEN_GO_BIN"
	TagLogMode     = "PROXYGEN_LOG_MODE"
)

const DefaultPackage = "main"

// Headers always included in the cgo preamble, before the schema ones. The
// forwarders' symbol resolution needs the dl ones.
var DefaultHeaders = []string{
	"dlfcn.h",
	"link.h",
	"stddef.h",
	"stdint.h",
	"stdio.h",
	"stdlib.h",
	"string.h",
}
