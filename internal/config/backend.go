package config

import (
	"fmt"
	"strings"
)

const (
	BackendNative = "native"
	BackendONNX   = "onnx"
)

// NormalizeBackend canonicalizes a backend name. Empty selects the native
// backend.
func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	switch backend {
	case "", BackendNative, "native-safetensors":
		return BackendNative, nil
	case BackendONNX, "native-onnx", "ort":
		return BackendONNX, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected %s|%s)", raw, BackendNative, BackendONNX)
	}
}
