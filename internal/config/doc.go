// Package config loads everything a run needs before it touches the network:
// the mailbox and Telegram credentials, the three sender lists, and the run
// settings taken from the environment.
//
// All values are loaded once into immutable structs and handed to the
// components that need them. Any problem is reported as a *ConfigError so the
// caller can abort before connecting to the mail store.
package config
