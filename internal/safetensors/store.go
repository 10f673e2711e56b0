package safetensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Store is a decoded safetensors payload. Tensor data is decoded lazily.
type Store struct {
	raw      []byte
	entries  map[string]storeEntry
	names    []string
	metadata map[string]string
}

type storeEntry struct {
	DType DType
	Shape []int64
	Start int
	End   int
}

type storeHeaderEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

// OpenStore reads and indexes the safetensors file at path.
func OpenStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: read %s: %w", path, err)
	}

	return OpenStoreFromBytes(data)
}

// OpenStoreFromBytes indexes an in-memory safetensors payload.
func OpenStoreFromBytes(data []byte) (*Store, error) {
	headerEnd, header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(header))
	for name := range header {
		keys = append(keys, name)
	}

	sort.Strings(keys)

	entries := make(map[string]storeEntry, len(keys))
	names := make([]string, 0, len(keys))
	metadata := map[string]string{}

	for _, name := range keys {
		if name == metadataKey {
			if err := json.Unmarshal(header[name], &metadata); err != nil {
				return nil, fmt.Errorf("safetensors: decode metadata: %w", err)
			}

			continue
		}

		var raw storeHeaderEntry
		if err := json.Unmarshal(header[name], &raw); err != nil {
			return nil, fmt.Errorf("safetensors: decode header entry %q: %w", name, err)
		}

		entry, err := validateHeaderEntry(name, raw)
		if err != nil {
			return nil, err
		}

		entry.Start += headerEnd
		entry.End += headerEnd

		if entry.End > len(data) {
			return nil, fmt.Errorf(
				"safetensors: tensor %q data [%d:%d] exceeds file size %d",
				name,
				entry.Start,
				entry.End,
				len(data),
			)
		}

		entries[name] = entry
		names = append(names, name)
	}

	if len(entries) == 0 {
		return nil, errors.New("safetensors: no tensors found")
	}

	return &Store{
		raw:      data,
		entries:  entries,
		names:    names,
		metadata: metadata,
	}, nil
}

// Names returns the tensor names in sorted order.
func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Metadata returns a copy of the __metadata__ header map.
func (s *Store) Metadata() map[string]string {
	out := make(map[string]string, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}

	return out
}

// Tensor decodes the named tensor.
func (s *Store) Tensor(name string) (*Tensor, error) {
	entry, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("safetensors: tensor %q not found (available: %s)", name, summarizeNames(s.names))
	}

	t := &Tensor{
		Name:  name,
		DType: entry.DType,
		Shape: append([]int64(nil), entry.Shape...),
	}

	raw := s.raw[entry.Start:entry.End]

	var err error
	if entry.DType.IsFloat() {
		t.Floats, err = decodeFloats(raw, entry.DType)
	} else {
		t.Ints, err = decodeInts(raw, entry.DType)
	}

	if err != nil {
		return nil, fmt.Errorf("safetensors: tensor %q decode: %w", name, err)
	}

	return t, nil
}

// TensorWithShape decodes the named tensor and checks its shape.
func (s *Store) TensorWithShape(name string, wantShape []int64) (*Tensor, error) {
	t, err := s.Tensor(name)
	if err != nil {
		return nil, err
	}

	if !equalShape(t.Shape, wantShape) {
		return nil, fmt.Errorf("safetensors: tensor %q shape %v does not match expected %v", name, t.Shape, wantShape)
	}

	return t, nil
}

func (s *Store) Close() {
	s.raw = nil
	s.entries = nil
	s.names = nil
}

func decodeHeader(data []byte) (int, map[string]json.RawMessage, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("safetensors: file too short (%d bytes)", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return 0, nil, fmt.Errorf("safetensors: header length %d exceeds file size %d", headerLen, len(data))
	}

	headerEnd := 8 + int(headerLen)

	var header map[string]json.RawMessage

	err := json.Unmarshal(data[8:headerEnd], &header)
	if err != nil {
		return 0, nil, fmt.Errorf("safetensors: parse header: %w", err)
	}

	return headerEnd, header, nil
}

func validateHeaderEntry(name string, raw storeHeaderEntry) (storeEntry, error) {
	dtype, err := parseDType(raw.DType)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	if raw.Offsets[0] < 0 || raw.Offsets[1] < raw.Offsets[0] {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q has invalid data offsets %v", name, raw.Offsets)
	}

	elemCount, err := shapeElementCount(raw.Shape)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	size, _ := dtype.Size()
	if want, have := int(elemCount)*size, raw.Offsets[1]-raw.Offsets[0]; want != have {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q needs %d bytes but data has %d", name, want, have)
	}

	return storeEntry{
		DType: dtype,
		Shape: append([]int64(nil), raw.Shape...),
		Start: raw.Offsets[0],
		End:   raw.Offsets[1],
	}, nil
}

func decodeFloats(raw []byte, dtype DType) ([]float64, error) {
	size, err := dtype.Size()
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(raw)/size)

	switch dtype {
	case F64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case F32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case F16:
		for i := range out {
			out[i] = float64(float16ToFloat32(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	case BF16:
		for i := range out {
			bits := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = float64(math.Float32frombits(uint32(bits) << 16))
		}
	default:
		return nil, fmt.Errorf("dtype %q is not floating point", string(dtype))
	}

	return out, nil
}

func decodeInts(raw []byte, dtype DType) ([]int64, error) {
	switch dtype {
	case I64:
		out := make([]int64, len(raw)/8)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}

		return out, nil
	case I32:
		out := make([]int64, len(raw)/4)
		for i := range out {
			out[i] = int64(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		}

		return out, nil
	default:
		return nil, fmt.Errorf("dtype %q is not an integer type", string(dtype))
	}
}

func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h & 0x03ff)

	var bits uint32

	switch exp {
	case 0:
		if frac == 0 {
			bits = sign << 31
		} else {
			// Subnormal: normalize.
			e := int32(-14)

			for (frac & 0x0400) == 0 {
				frac <<= 1
				e--
			}

			frac &= 0x03ff
			exp32 := uint32(e + 127)
			bits = (sign << 31) | (exp32 << 23) | (frac << 13)
		}
	case 0x1f:
		bits = (sign << 31) | 0x7f800000 | (frac << 13)
	default:
		exp32 := exp + (127 - 15)
		bits = (sign << 31) | (exp32 << 23) | (frac << 13)
	}

	return math.Float32frombits(bits)
}

func summarizeNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}

	const maxNames = 8
	if len(names) <= maxNames {
		return strings.Join(names, ", ")
	}

	return strings.Join(names[:maxNames], ", ") + ", ..."
}
