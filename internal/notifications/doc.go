// Package notifications delivers host feedback for accepted scans.
//
// The desktop notifier runs notify-send (or a configured command); the ntfy
// notifier publishes to the topic configured in config.toml. Both can be
// active at once. When feedback is disabled a no-op notifier is returned so
// the session controller never needs to nil-check.
//
// Delivery is fire-and-forget from the caller's point of view: the session
// controller logs failures at debug level and carries on.
package notifications
