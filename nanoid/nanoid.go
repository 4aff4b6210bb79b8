package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize = 16

	// Alphanumeric is the alphabet used for generated file names.
	Alphanumeric = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercase    = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func getSize(l ...int) int {
	size := defaultSize
	if len(l) > 0 && l[0] > 0 {
		size = l[0]
	}
	return size
}

// Must generate optional length nanoid
func Must(l ...int) string {
	return gonanoid.Must(getSize(l...))
}

// String generate optional length alphanumeric nanoid
func String(l ...int) string {
	return gonanoid.MustGenerate(Alphanumeric, getSize(l...))
}

// Lower generate optional length lowercase nanoid
func Lower(l ...int) string {
	return gonanoid.MustGenerate(lowercase, getSize(l...))
}

// FileName returns a random file name with the given extension.
// The extension may be given with or without the leading dot.
func FileName(ext string) string {
	name := String()
	if ext == "" {
		return name
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	return name + ext
}
