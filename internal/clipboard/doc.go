// Package clipboard copies scan payloads to the system clipboard.
//
// Backends are tried in order: the configured command, then whichever of
// wl-copy, xclip or xsel is installed, and finally an OSC 52 escape written to
// the terminal when stderr is a TTY. Failures are reported as ErrClipboard and
// never retried.
package clipboard
