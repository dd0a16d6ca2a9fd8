// Package config defines the settings used by the energy-sim binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Values are read from a YAML file first; ENERGY_SIM_* environment variables
// override them (for example ENERGY_SIM_STORAGE_DRIVER=redis), and Validate
// fills in defaults for everything left unset.
package config
