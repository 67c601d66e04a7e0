// Package config defines installer and teardown configuration.
//
// Configuration is layered: built-in defaults, an optional YAML answers
// file, HOPSWORKS_* environment variables, and finally CLI flags applied by
// the command handlers. Anything still missing is asked interactively by
// the wizard package.
package config
