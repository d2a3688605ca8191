// Package file stores dockit configuration on the local filesystem.
//
// The TOML file at ~/.dockit/config.toml (or --config-dir) holds nested
// tables that the store exposes as flat dotted keys.
package file
