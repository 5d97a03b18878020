package configs

const (
	InternalSuffix = `_internal`
	ExternalSuffix = `_external`

	InputVarIdentPrefix     = `_input`
	InputVarIdentFormat     = InputVarIdentPrefix + `%d`
	OutputVarIdent          = `_output`
	UnnamedParamIdentFormat = `_param%d`
	ReceiverParamIdent      = `self`

	CgoPackageName    = `C`
	UnsafePackageName = `unsafe`

	ExportDirectiveFormat = `//export %s`
	CFlagsLine            = `#cgo CFLAGS: -D_GNU_SOURCE`
	DlLinkFlagLine        = `#cgo LDFLAGS: -ldl`
	LinkFlagFormat        = `#cgo LDFLAGS: -Wl,--no-as-needed -l%s`
	IncludeFormat         = `#include <%s>`
	ForwardIdentFormat    = `proxygen_forward_%s`
	ForwardArgFormat      = `p%d`

	GeneratedHeader = `// Code generated by proxygen. DO NOT EDIT.`
	GeneratedFile   = `proxy_gen.go`

	Version = "0.1.0"
)

// ExportMarker is the byte pattern truncated by the export rewriter. It must
// stay in sync with ExternalSuffix: the lookup name of every generated
// forwarder ends with it once it lands in the library's read-only data.
var ExportMarker = []byte(ExternalSuffix + "\x00")

// InternalDocFormat documents the calling convention of the generated call
// wrapper. Arguments: wrapper name, external name, library.
const InternalDocFormat = `// %[1]s calls the real function of lib%[3]s, looked up as %[2]s.
//
// Arguments are passed by value in declaration order. Pointer arguments are
// forwarded as is: they stay owned by the caller and nothing is retained or
// freed on either side of the call.`

// ResolverSource is the C side shared by every forwarder of a generated file.
//
// A forwarder looks its function up by external name in the target library
// on first call. The lookup name is a string literal, so once the export
// rewriter truncated it in the built library the real, unsuffixed function
// is found. The library handle comes from the objects already loaded, so the
// proxy's own exports are never candidates.
const ResolverSource = `struct proxygen_search {
	const char *prefix;
	const char *self;
	const char *path;
};

static inline int proxygen_match(struct dl_phdr_info *info, size_t size, void *data) {
	struct proxygen_search *s = data;
	const char *base = strrchr(info->dlpi_name, '/');
	size_t n = strlen(s->prefix);

	(void)size;
	base = base != NULL ? base + 1 : info->dlpi_name;
	if (s->self != NULL && strcmp(info->dlpi_name, s->self) == 0) {
		return 0;
	}
	if (strncmp(base, s->prefix, n) == 0 && (base[n] == '\0' || base[n] == '.')) {
		s->path = info->dlpi_name;
		return 1;
	}
	return 0;
}

static inline void *proxygen_resolve(const char *lib, const char *name) {
	char prefix[256];
	struct proxygen_search s = {prefix, NULL, NULL};
	Dl_info self;
	void *handle;
	void *fn;
	const char *err;

	snprintf(prefix, sizeof(prefix), "lib%s.so", lib);
	if (dladdr((void *)proxygen_resolve, &self) != 0) {
		s.self = self.dli_fname;
	}
	dl_iterate_phdr(proxygen_match, &s);
	handle = dlopen(s.path != NULL ? s.path : prefix, RTLD_LAZY);
	fn = handle != NULL ? dlsym(handle, name) : NULL;
	if (fn == NULL) {
		err = dlerror();
		fprintf(stderr, "proxygen: cannot resolve %s in %s: %s\n", name, prefix, err != NULL ? err : "not found");
		abort();
	}
	return fn;
}

static inline void *proxygen_lookup(void **slot, const char *lib, const char *name) {
	void *fn = __atomic_load_n(slot, __ATOMIC_ACQUIRE);
	if (fn == NULL) {
		fn = proxygen_resolve(lib, name);
		__atomic_store_n(slot, fn, __ATOMIC_RELEASE);
	}
	return fn;
}`
