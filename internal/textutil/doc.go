// Package textutil cleans untrusted scan payloads for display and builds
// filesystem- and tag-safe tokens.
//
// Barcode payloads are arbitrary bytes chosen by whoever printed the code, so
// anything echoed to a terminal goes through SanitizeTerminal first.
package textutil
