// Package environment names the deployment environment (development,
// staging, production). Environment implements encoding.TextUnmarshaler so it
// can sit directly in env-tagged config structs.
package environment
