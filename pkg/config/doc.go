// Package config loads, validates, and watches the service configuration.
//
// # Overview
//
// Configuration is a single YAML file with four sections: server, admission,
// audit, and telemetry. Loading applies defaults for unset fields, then
// validates the result; environment variables of the form
// GATEHOUSE_SECTION_FIELD override file values.
//
// # Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("gatehouse.yaml")
//
// Validation errors are collected, not short-circuited: a ValidationError
// lists every invalid field so a bad file can be fixed in one pass.
//
// # Hot reload
//
// Watcher monitors the configuration file with fsnotify and re-loads it on
// change, debounced. cmd/gatehouse uses it to re-register operation budgets
// without a restart; server and audit settings require a restart and are
// ignored on reload.
package config
