// Package config loads the store configuration of the recovery registry from
// an optional YAML file, an optional dotenv file and RECOVERY_* environment
// variables, in that order of precedence (last wins).
package config
