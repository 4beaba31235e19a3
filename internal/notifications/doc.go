// Package notifications delivers batch lifecycle events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Completion and error notifications can be suppressed individually
// through configuration.
//
// Extend this package if you need alternative transports; batch runners
// depend only on the simple Service interface.
package notifications
