package vocab

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// fileFormat is the on-disk vocabulary layout. Tokens are stored in id order,
// so the mapping is reproduced exactly on load.
type fileFormat struct {
	Version int      `json:"version"`
	Tokens  []string `json:"tokens"`
	Counts  []int    `json:"counts"`
}

const fileVersion = 1

// Write encodes the vocabulary as JSON.
func (v *Vocabulary) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(fileFormat{
		Version: fileVersion,
		Tokens:  v.tokens,
		Counts:  v.counts,
	})
	if err != nil {
		return fmt.Errorf("vocab: encode: %w", err)
	}

	return nil
}

// Save writes the vocabulary to path.
func (v *Vocabulary) Save(path string) error {
	var buf bytes.Buffer
	if err := v.Write(&buf); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("vocab: write %s: %w", path, err)
	}

	return nil
}

// Read decodes a vocabulary written by Write and validates it.
func Read(r io.Reader) (*Vocabulary, error) {
	var f fileFormat
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("vocab: decode: %w", err)
	}

	if f.Version != fileVersion {
		return nil, fmt.Errorf("vocab: unsupported file version %d", f.Version)
	}

	return newVocabulary(f.Tokens, f.Counts)
}

// Load reads a vocabulary file from path.
func Load(path string) (*Vocabulary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	return Read(file)
}
