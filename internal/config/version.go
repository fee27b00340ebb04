package config

// Version is the kinship binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/kinship/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
