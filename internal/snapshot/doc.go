// Package snapshot persists parking lot state across restarts.
//
// It separates two concerns behind narrow interfaces: Codec owns the
// versioned binary wire format, Repository owns atomic storage of the
// encoded bytes. The lot composes the two and never touches either
// the layout or the filesystem directly.
package snapshot
