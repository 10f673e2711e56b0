// Package doctor provides environment preflight checks for the sentiment
// pipeline.
package doctor

import (
	"fmt"
	"io"
	"os"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/config"
	"github.com/example/go-sentiment/internal/dataset"
	"github.com/example/go-sentiment/internal/onnx"
	"github.com/example/go-sentiment/internal/text"
	"github.com/example/go-sentiment/internal/vocab"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds the artifacts to check and injectable probes.
type Config struct {
	ReviewsPath string
	LabelsPath  string
	VocabPath   string
	Backend     string
	// ModelPath is the native checkpoint.
	ModelPath     string
	ONNXModelPath string
	// ORTRuntime describes the ONNX Runtime library. Only used by the onnx backend.
	ORTRuntime VersionFunc
}

// FromConfig derives doctor checks from application configuration.
func FromConfig(cfg config.Config) Config {
	rt := cfg.Runtime

	return Config{
		ReviewsPath:   cfg.Paths.Reviews,
		LabelsPath:    cfg.Paths.Labels,
		VocabPath:     cfg.Paths.Vocab,
		Backend:       rt.Backend,
		ModelPath:     cfg.Paths.Model,
		ONNXModelPath: cfg.Paths.ONNXModel,
		ORTRuntime: func() (string, error) {
			info, err := onnx.DetectRuntime(rt)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("%s (version %s)", info.LibraryPath, info.Version), nil
		},
	}
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

type reporter struct {
	w   io.Writer
	res *Result
}

func (p reporter) pass(format string, args ...any) {
	fmt.Fprintf(p.w, "%s "+format+"\n", append([]any{PassMark}, args...)...)
}

func (p reporter) fail(check string, err error) {
	p.res.failures = append(p.res.failures, fmt.Sprintf("%s: %v", check, err))
	fmt.Fprintf(p.w, "%s %s: %v\n", FailMark, check, err)
}

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result
	p := reporter{w: w, res: &res}

	// ---- corpus -----------------------------------------------------------
	if cfg.ReviewsPath == "" && cfg.LabelsPath == "" {
		p.pass("corpus: skipped")
	} else if c, err := dataset.LoadCorpus(cfg.ReviewsPath, cfg.LabelsPath); err != nil {
		p.fail("corpus", err)
	} else {
		empty := 0
		for _, r := range c.Reviews {
			if len(text.Tokenize(r)) == 0 {
				empty++
			}
		}

		p.pass("corpus: %d reviews aligned with labels (%d empty)", c.Len(), empty)
	}

	// ---- vocabulary -------------------------------------------------------
	v, err := vocab.Load(cfg.VocabPath)
	if err != nil {
		p.fail("vocabulary", err)
	} else {
		p.pass("vocabulary: %d tokens (%s)", v.Len(), cfg.VocabPath)
	}

	// ---- backend ----------------------------------------------------------
	backend, err := config.NormalizeBackend(cfg.Backend)
	if err != nil {
		p.fail("backend", err)
		return res
	}

	switch backend {
	case config.BackendNative:
		checkCheckpoint(p, cfg.ModelPath, v)
	case config.BackendONNX:
		checkONNX(p, cfg)
	}

	return res
}

func checkCheckpoint(p reporter, path string, v *vocab.Vocabulary) {
	m, err := classifier.Load(path)
	if err != nil {
		p.fail("checkpoint", err)
		return
	}

	mc := m.Config()
	if v != nil && mc.VocabSize != v.Size() {
		p.fail("checkpoint", fmt.Errorf("%s expects vocabulary size %d, vocabulary has %d", path, mc.VocabSize, v.Size()))
		return
	}

	p.pass("checkpoint: %s (%d layers, hidden %d, %d params, run %s)",
		path, mc.Layers, mc.HiddenDim, m.NumParams(), m.RunID())
}

func checkONNX(p reporter, cfg Config) {
	if cfg.ORTRuntime == nil {
		p.fail("onnx runtime", fmt.Errorf("no runtime probe configured"))
	} else if desc, err := cfg.ORTRuntime(); err != nil {
		p.fail("onnx runtime", err)
	} else {
		p.pass("onnx runtime: %s", desc)
	}

	if _, err := os.Stat(cfg.ONNXModelPath); err != nil {
		p.fail("onnx graph", err)
	} else {
		p.pass("onnx graph: %s", cfg.ONNXModelPath)
	}
}
