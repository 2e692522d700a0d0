package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ResolveSecret turns an "env:NAME" reference into the variable's value.
// Anything else is returned as a literal.
func ResolveSecret(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty secret reference")
	}
	name, ok := strings.CutPrefix(ref, "env:")
	if !ok {
		return ref, nil
	}
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("env %s is empty", name)
	}
	return v, nil
}

// resolveOptional is ResolveSecret for values that may legitimately be unset.
// An empty reference resolves to "" without error.
func resolveOptional(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", nil
	}
	return ResolveSecret(ref)
}
