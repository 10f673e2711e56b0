// Package testutil provides shared skip helpers and fixtures for tests.
//
// Each Require helper calls Skipf with a clear human-readable reason when the
// named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    model := testutil.RequireONNXModel(t)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ORTLibraryEnvVars are consulted in order for an ONNX Runtime library path.
var ORTLibraryEnvVars = []string{"SENTIMENT_ORT_LIB", "ORT_LIBRARY_PATH"}

// ONNXModelEnvVar names an ONNX sentiment graph used by integration tests.
const ONNXModelEnvVar = "SENTIMENT_TEST_ONNX_MODEL"

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located and returns its path otherwise. It checks ORTLibraryEnvVars, then
// common system library paths.
func RequireONNXRuntime(tb testing.TB) string {
	tb.Helper()

	for _, env := range ORTLibraryEnvVars {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err == nil {
				return p
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)

			return ""
		}
	}

	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	tb.Skipf("ONNX Runtime shared library not found; set %s", strings.Join(ORTLibraryEnvVars, " or "))

	return ""
}

// RequireONNXModel skips the test unless ONNXModelEnvVar points at an
// existing graph, and returns its path.
func RequireONNXModel(tb testing.TB) string {
	tb.Helper()

	p := os.Getenv(ONNXModelEnvVar)
	if p == "" {
		tb.Skipf("no ONNX sentiment graph; set %s", ONNXModelEnvVar)
		return ""
	}

	if _, err := os.Stat(p); err != nil {
		tb.Skipf("ONNX sentiment graph not found at %s=%q", ONNXModelEnvVar, p)
		return ""
	}

	return p
}

// Corpus is a small labelled review set for tests.
var Corpus = struct {
	Reviews []string
	Labels  []string
}{
	Reviews: []string{
		"A great movie, I loved it!",
		"Terrible plot. Boring and bad.",
		"Great acting and a great story.",
		"Bad, bad, bad movie.",
		"I loved the story",
		"boring",
	},
	Labels: []string{"positive", "negative", "positive", "negative", "positive", "negative"},
}

// WriteCorpus writes reviews and labels as newline-terminated files in dir
// and returns their paths.
func WriteCorpus(tb testing.TB, dir string, reviews, labels []string) (reviewsPath, labelsPath string) {
	tb.Helper()

	reviewsPath = filepath.Join(dir, "reviews.txt")
	labelsPath = filepath.Join(dir, "labels.txt")

	writeLines(tb, reviewsPath, reviews)
	writeLines(tb, labelsPath, labels)

	return reviewsPath, labelsPath
}

func writeLines(tb testing.TB, path string, lines []string) {
	tb.Helper()

	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}
