// Package utils holds the configuration loader and logger factory shared by
// the CLI commands. Configuration is merged from embedded defaults, an
// optional file and the environment through Viper; loggers are zap loggers
// in structured or console form.
package utils
