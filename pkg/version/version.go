package version

// Version is set at build time with -ldflags "-X .../pkg/version.Version=...".
var Version = "dev"

const ProtocolVersion = "2025-06-18"

// SupportedProtocolVersions lists the MCP revisions the server accepts,
// newest first.
var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}
