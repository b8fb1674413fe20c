// Package config loads runtime configuration from an optional YAML file and
// INTERVIEWMESH_* environment variables, with flags layered on top by the
// CLI. Environment beats file, flags beat both.
package config
