package doctor

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/config"
	"github.com/example/go-sentiment/internal/testutil"
	"github.com/example/go-sentiment/internal/text"
	"github.com/example/go-sentiment/internal/vocab"
)

// fixture writes a corpus, its vocabulary and a matching checkpoint. The
// corpus files end in a newline, so they hold one trailing empty review.
func fixture(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	reviews, labels := testutil.WriteCorpus(t, dir, testutil.Corpus.Reviews, testutil.Corpus.Labels)

	v, err := vocab.Build(text.TokenizeAll(testutil.Corpus.Reviews))
	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		ReviewsPath: reviews,
		LabelsPath:  labels,
		VocabPath:   filepath.Join(dir, "vocab.json"),
		Backend:     config.BackendNative,
		ModelPath:   filepath.Join(dir, "model.safetensors"),
	}

	if err := v.Save(cfg.VocabPath); err != nil {
		t.Fatal(err)
	}

	m, err := classifier.New(classifier.Config{VocabSize: v.Size(), EmbeddingDim: 3, HiddenDim: 2, Layers: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Save(cfg.ModelPath); err != nil {
		t.Fatal(err)
	}

	return cfg
}

func TestRunAllPass(t *testing.T) {
	var buf bytes.Buffer

	res := Run(fixture(t), &buf)
	if res.Failed() {
		t.Fatalf("unexpected failures: %v\n%s", res.Failures(), buf.String())
	}

	out := buf.String()
	for _, want := range []string{
		PassMark + " corpus: 7 reviews aligned with labels (1 empty)",
		PassMark + " vocabulary:",
		PassMark + " checkpoint:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, FailMark) {
		t.Errorf("output has failure mark:\n%s", out)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, c *Config)
		check  string
	}{
		{
			name: "label count mismatch",
			mutate: func(t *testing.T, c *Config) {
				_, c.LabelsPath = testutil.WriteCorpus(t, t.TempDir(), []string{"x"}, []string{"positive", "negative"})
			},
			check: "corpus",
		},
		{
			name:   "missing vocab",
			mutate: func(t *testing.T, c *Config) { c.VocabPath = filepath.Join(t.TempDir(), "nope.json") },
			check:  "vocabulary",
		},
		{
			name:   "missing checkpoint",
			mutate: func(t *testing.T, c *Config) { c.ModelPath = filepath.Join(t.TempDir(), "nope.safetensors") },
			check:  "checkpoint",
		},
		{
			name: "checkpoint vocab mismatch",
			mutate: func(t *testing.T, c *Config) {
				m, err := classifier.New(classifier.Config{VocabSize: 2, EmbeddingDim: 2, HiddenDim: 2, Layers: 1})
				if err != nil {
					t.Fatal(err)
				}

				c.ModelPath = filepath.Join(t.TempDir(), "small.safetensors")
				if err := m.Save(c.ModelPath); err != nil {
					t.Fatal(err)
				}
			},
			check: "checkpoint",
		},
		{
			name:   "bad backend",
			mutate: func(_ *testing.T, c *Config) { c.Backend = "gpu" },
			check:  "backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fixture(t)
			tc.mutate(t, &cfg)

			var buf bytes.Buffer

			res := Run(cfg, &buf)
			if !res.Failed() {
				t.Fatalf("expected failure:\n%s", buf.String())
			}

			if !strings.Contains(buf.String(), FailMark+" "+tc.check+":") {
				t.Errorf("output missing failed %q line:\n%s", tc.check, buf.String())
			}

			if !strings.HasPrefix(res.Failures()[0], tc.check+":") {
				t.Errorf("failures = %v", res.Failures())
			}
		})
	}
}

func TestRunSkipsCorpus(t *testing.T) {
	cfg := fixture(t)
	cfg.ReviewsPath, cfg.LabelsPath = "", ""

	var buf bytes.Buffer
	if res := Run(cfg, &buf); res.Failed() {
		t.Fatalf("failures: %v", res.Failures())
	}

	if !strings.Contains(buf.String(), PassMark+" corpus: skipped") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestRunONNX(t *testing.T) {
	cfg := fixture(t)
	cfg.Backend = config.BackendONNX
	cfg.ONNXModelPath = cfg.ModelPath // any existing file satisfies the presence check
	cfg.ORTRuntime = func() (string, error) { return "/opt/libonnxruntime.so (version 1.23.2)", nil }

	var buf bytes.Buffer
	if res := Run(cfg, &buf); res.Failed() {
		t.Fatalf("failures: %v\n%s", res.Failures(), buf.String())
	}

	if !strings.Contains(buf.String(), PassMark+" onnx runtime: /opt/libonnxruntime.so") {
		t.Errorf("output:\n%s", buf.String())
	}

	cfg.ORTRuntime = func() (string, error) { return "", errors.New("not installed") }
	cfg.ONNXModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	buf.Reset()

	res := Run(cfg, &buf)
	if len(res.Failures()) != 2 {
		t.Fatalf("failures = %v; want runtime and graph", res.Failures())
	}
}

func TestFromConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.Runtime.ORTLibraryPath = filepath.Join(t.TempDir(), "missing.so")

	d := FromConfig(c)
	if d.VocabPath != c.Paths.Vocab || d.ModelPath != c.Paths.Model || d.Backend != c.Runtime.Backend {
		t.Errorf("FromConfig = %+v", d)
	}

	if _, err := d.ORTRuntime(); err == nil {
		t.Error("expected runtime probe to fail for missing library")
	}
}

func TestResultAddFailure(t *testing.T) {
	var r Result
	if r.Failed() {
		t.Fatal("zero Result should not be failed")
	}

	r.AddFailure("server: unreachable")

	if !r.Failed() || r.Failures()[0] != "server: unreachable" {
		t.Fatalf("Failures = %v", r.Failures())
	}
}
