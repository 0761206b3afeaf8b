// Package config handles loading and parsing of configuration from CLI
// flags, YAML files and environment variables. It defines the application
// configuration structure including the listen address, default backend,
// PATH=BACKEND route entries, rewrite switch, head-size limits and I/O
// timeouts.
package config
