//go:build !darwin

package main

// HideFromDock is a no-op outside macOS — there is no Dock to hide from.
func HideFromDock() {}
