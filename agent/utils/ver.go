package utils

// Version is set by the build with -ldflags "-X ...utils.Version=v0.1.2".
var Version = "v0.1.0-dev"
