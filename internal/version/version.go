package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/provisio-sh/provisio/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/provisio-sh/provisio/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/provisio-sh/provisio/internal/version.Date={{.Date}}
)
