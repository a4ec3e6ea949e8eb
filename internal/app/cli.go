package app

import "github.com/spf13/pflag"

// RegisterIndexFlags registers the flags of the index command on the given
// FlagSet. Zero defaults leave the configured defaults in effect.
func RegisterIndexFlags(flags *pflag.FlagSet) {
	flags.String("index-file", "", "JSON or YAML file listing the repositories to index")
	flags.StringP("dest", "d", "", "Destination folder for working copies")
	flags.BoolP("folder", "f", false, "Index folders already present in dest instead of cloning")
	flags.Bool("delete-dir", false, "Delete each working copy after it has been indexed")
	flags.String("default-host", "", "Host for repositories given as owner/name")
	flags.String("default-branch", "", "Branch reported when HEAD cannot be read")
	flags.Duration("lock-timeout", 0, "How long to wait for another run holding dest")
	flags.Duration("clone-timeout", 0, "Timeout of a single clone (0 = none)")
	flags.Int64("max-file-size", 0, "Skip files larger than this many bytes (0 = unlimited)")
	flags.StringSlice("exclude", nil, "Additional file patterns to skip (comma-separated)")

	flags.StringP("backend", "b", "", "Search backend: solr, elasticsearch, or bleve")
	flags.String("base-url", "", "Base URL of the search backend")
	flags.String("collection", "", "Collection or index name")
	flags.Int("commit-within", 0, "Solr commitWithin in milliseconds")
	flags.Duration("backend-timeout", 0, "Timeout of a single backend request")
	flags.Float64("max-writes-per-second", 0, "Limit backend writes (0 = unlimited)")
	flags.String("index-dir", "", "Directory of the local bleve index")

	flags.Int("window", 0, "Initial row window of a chunk")
	flags.Int("max-chars", 0, "Character budget below which the chunk window grows")

	flags.String("default-owner-id", "", "Owner id used when resolution fails")
	flags.String("github-token", "", "GitHub token for owner id lookups")
	flags.String("github-api-url", "", "GitHub API base URL (enterprise)")
	flags.String("metrics-push-url", "", "Pushgateway URL receiving run metrics")

	registerCommonFlags(flags)
}

// RegisterServeFlags registers the flags of the serve command on the given
// FlagSet.
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.String("index-dir", "", "Directory of the local bleve index to search")
	flags.Int("max-results", 0, "Maximum number of search results")

	registerCommonFlags(flags)
}

func registerCommonFlags(flags *pflag.FlagSet) {
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn, or error")
}
