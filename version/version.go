package version

// Version is the semantic version of blockscan. Overridden at build time via
// -ldflags "-X github.com/Ncn914491/blockscan/version.Version=x.y.z".
var Version = "dev"
