// Package domain holds the core entities and error taxonomy of parkd.
//
// The package has no dependencies on other parkd packages and defines
// the vocabulary shared by the lot, the snapshot codec, and the API layer.
package domain
