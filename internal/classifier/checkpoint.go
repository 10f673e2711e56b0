package classifier

import (
	"fmt"
	"strconv"

	"github.com/example/go-sentiment/internal/safetensors"
)

const checkpointFormat = "go-sentiment/lstm-v1"

// Save writes the weights and architecture to a safetensors checkpoint.
func (m *Model) Save(path string) error {
	tensors := make([]safetensors.Tensor, 0, len(m.params))
	for _, p := range m.params {
		r, c := p.w.Dims()
		tensors = append(tensors, safetensors.FloatTensor(p.name, []int64{int64(r), int64(c)}, p.data()))
	}

	meta := map[string]string{
		"format":        checkpointFormat,
		"run_id":        m.runID,
		"vocab_size":    strconv.Itoa(m.cfg.VocabSize),
		"embedding_dim": strconv.Itoa(m.cfg.EmbeddingDim),
		"hidden_dim":    strconv.Itoa(m.cfg.HiddenDim),
		"layers":        strconv.Itoa(m.cfg.Layers),
		"drop_prob":     strconv.FormatFloat(m.cfg.DropProb, 'g', -1, 64),
		"fc_drop_prob":  strconv.FormatFloat(m.cfg.FCDropProb, 'g', -1, 64),
		"seed":          strconv.FormatUint(m.cfg.Seed, 10),
	}

	if err := safetensors.WriteFile(path, tensors, meta); err != nil {
		return fmt.Errorf("classifier: save: %w", err)
	}

	return nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*Model, error) {
	store, err := safetensors.OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: load: %w", err)
	}
	defer store.Close()

	meta := store.Metadata()
	if meta["format"] != checkpointFormat {
		return nil, fmt.Errorf("classifier: load %s: unsupported checkpoint format %q", path, meta["format"])
	}

	cfg, err := configFromMetadata(meta)
	if err != nil {
		return nil, fmt.Errorf("classifier: load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: load %s: %w", path, err)
	}

	m := newModel(cfg)
	if id := meta["run_id"]; id != "" {
		m.runID = id
	}

	for _, p := range m.params {
		r, c := p.w.Dims()
		t, err := store.TensorWithShape(p.name, []int64{int64(r), int64(c)})
		if err != nil {
			return nil, fmt.Errorf("classifier: load %s: %w", path, err)
		}
		if !t.DType.IsFloat() {
			return nil, fmt.Errorf("classifier: load %s: tensor %q has dtype %s", path, p.name, t.DType)
		}
		copy(p.data(), t.Floats)
	}

	return m, nil
}

func configFromMetadata(meta map[string]string) (Config, error) {
	var cfg Config
	var err error

	ints := []struct {
		key string
		dst *int
	}{
		{"vocab_size", &cfg.VocabSize},
		{"embedding_dim", &cfg.EmbeddingDim},
		{"hidden_dim", &cfg.HiddenDim},
		{"layers", &cfg.Layers},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(meta[f.key]); err != nil {
			return Config{}, fmt.Errorf("metadata %s: %w", f.key, err)
		}
	}

	if cfg.DropProb, err = strconv.ParseFloat(meta["drop_prob"], 64); err != nil {
		return Config{}, fmt.Errorf("metadata drop_prob: %w", err)
	}
	if cfg.FCDropProb, err = strconv.ParseFloat(meta["fc_drop_prob"], 64); err != nil {
		return Config{}, fmt.Errorf("metadata fc_drop_prob: %w", err)
	}
	if s := meta["seed"]; s != "" {
		if cfg.Seed, err = strconv.ParseUint(s, 10, 64); err != nil {
			return Config{}, fmt.Errorf("metadata seed: %w", err)
		}
	}

	return cfg, nil
}
