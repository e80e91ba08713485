//go:build windows

package config

func defaultSocketPath() string {
	return `\\.\pipe\WardenPedm`
}

func defaultHelperPath() string {
	return "warden-consent.exe"
}
