//go:build !windows

package config

import "path/filepath"

func defaultSocketPath() string {
	return filepath.Join("data", "warden.sock")
}

func defaultHelperPath() string {
	return "warden-consent"
}
