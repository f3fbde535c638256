// Package session drives one scan session at a time against a capture device.
//
// A Controller moves through Idle, Starting, Active, Stopping and Failed,
// opens a decoder stream for the chosen device, debounces repeated decodes
// with a DecodeFilter and records accepted scans in a newest-first ResultLog.
// State changes and accepted results are published to an EventHub so a CLI
// or other observer can follow the session without polling.
package session
