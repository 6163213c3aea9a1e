// Package cli builds the rmmsync command-line interface: the Cobra command
// tree, configuration loading through Viper and the zap logger shared by
// every command.
package cli
