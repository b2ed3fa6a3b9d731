package domain

// PluginDescriptor describes a plugin executable located on the search
// path. It intentionally contains only the minimal, stable attributes that
// identify and locate the binary. Descriptors come from a fresh scan on
// every launch attempt and are discarded after launch, never cached.
type PluginDescriptor struct {
	// Name is the logical plugin name, which equals the executable's file name.
	Name string

	// Path is the absolute path to the plugin binary.
	Path string

	// Dir is the search-path directory the binary was found in.
	Dir string
}
