// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package artifact

import "fmt"

// Backend identifies a Store implementation.
type Backend string

const (
	// BackendFile stores versions as directories on the local filesystem.
	BackendFile Backend = "file"

	// BackendBadger stores versions in a BadgerDB directory.
	BackendBadger Backend = "badger"
)

// Open returns the Store for backend rooted at path. An empty backend
// selects BackendFile.
func Open(backend Backend, path string, retain int) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path, retain)
	case BackendBadger:
		return OpenBadgerStore(path, retain)
	default:
		return nil, fmt.Errorf("artifact: unknown backend %q", backend)
	}
}
