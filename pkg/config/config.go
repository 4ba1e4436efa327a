// Package config loads provisioning configuration. The step-runner is pure
// mechanism; everything a step actually installs (package lists, vendor
// URLs, flatpak refs) is data that lives here and can be swapped without
// touching the runner.
package config

import "time"

// Config is the fully merged provisioning configuration.
type Config struct {
	Retry    Retry               `koanf:"retry"`
	Workdir  Workdir             `koanf:"workdir"`
	Packages Packages            `koanf:"packages"`
	Shell    Shell               `koanf:"shell"`
	Browser  Browser             `koanf:"browser"`
	Terminal Terminal            `koanf:"terminal"`
	Flatpak  Flatpak             `koanf:"flatpak"`
	Desktop  Desktop             `koanf:"desktop"`
	CLITool  CLITool             `koanf:"clitool"`
	Steps    map[string]Override `koanf:"steps"`
}

// Retry is the budget applied to retryable step actions.
type Retry struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Delay       time.Duration `koanf:"delay"`
}

// Workdir controls where the transient working directory is created.
type Workdir struct {
	Base string `koanf:"base"`
}

// Packages holds the apt package lists, keyed by variant name plus the
// special key "common" for lists shared across variants.
type Packages struct {
	Purge   map[string][]string `koanf:"purge"`
	Install map[string][]string `koanf:"install"`
}

// Shell describes the login shell to install for the principal.
type Shell struct {
	Package string `koanf:"package"`
	Binary  string `koanf:"binary"`
	// RCFile and RCContent are opaque payload, written verbatim into the
	// principal's home.
	RCFile    string `koanf:"rc_file"`
	RCContent string `koanf:"rc_content"`
}

// Browser describes the vendor-repo browser install.
type Browser struct {
	Package     string `koanf:"package"`
	Binary      string `koanf:"binary"`
	KeyringURL  string `koanf:"keyring_url"`
	KeyringPath string `koanf:"keyring_path"`
	RepoLine    string `koanf:"repo_line"`
	RepoFile    string `koanf:"repo_file"`
}

// Terminal describes the terminal emulator install.
type Terminal struct {
	Package string `koanf:"package"`
	Binary  string `koanf:"binary"`
}

// Flatpak describes the remote to register and the refs to install from it.
type Flatpak struct {
	Remote    string   `koanf:"remote"`
	RemoteURL string   `koanf:"remote_url"`
	Apps      []string `koanf:"apps"`
}

// Desktop holds the desktop-shell extension identifiers. Only consumed by
// steps guarded to the GNOME variant.
type Desktop struct {
	Extensions []string `koanf:"extensions"`
}

// CLITool describes the single third-party CLI installed from a tarball.
type CLITool struct {
	Name       string `koanf:"name"`
	URL        string `koanf:"url"`
	Binary     string `koanf:"binary"`
	InstallDir string `koanf:"install_dir"`
}

// Override adjusts a single step without redefining it: operators can
// disable a step or flip its criticality per host.
type Override struct {
	Enabled  *bool `koanf:"enabled" toml:"enabled"`
	Critical *bool `koanf:"critical" toml:"critical"`
}

// PackagesFor flattens a per-variant package map into the list that applies
// to the given variant, common entries first.
func PackagesFor(lists map[string][]string, variant string) []string {
	out := append([]string{}, lists["common"]...)
	out = append(out, lists[variant]...)
	return out
}
