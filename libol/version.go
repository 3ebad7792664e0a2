package libol

// Filled by the linker at release builds.
var (
	Date    string
	Version string
	Commit  string
)
