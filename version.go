package corefollow

// Version is the release reported by the CLI and the HTTP server.
const Version = "0.1.0"
