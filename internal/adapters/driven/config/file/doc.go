// Package file contains the file-based source configuration store.
//
// Sources are declared in a TOML file under the vigil config directory.
// The file is the single durable location for source settings; runtime
// toggles only become permanent when the full set is saved back.
package file
