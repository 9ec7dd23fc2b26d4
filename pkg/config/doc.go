// Package config loads the clawctl control-plane configuration file. One
// YAML document resolves the state directory, adapter settings, policy and
// manifest locations, the run archive path and the telemetry stack. Missing
// files yield defaults so clawctl works out of the box.
package config
