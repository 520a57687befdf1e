package sqlutil

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
)

// EncodeVector writes v as packed little-endian float32, the blob layout
// sqlite-vec reads.
func EncodeVector(v []float32) ([]byte, error) {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf, nil
}

func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not float32 aligned", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// EncodeMetadata renders normalized metadata as a JSON object. Integral
// floats keep a fractional part so they read back as float64.
func EncodeMetadata(m models.Metadata) (string, error) {
	obj := make(map[string]any, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return "", fmt.Errorf("%w: key %q is not finite", storage.ErrInvalidMetadata, k)
			}
			if f == math.Trunc(f) {
				obj[k] = json.RawMessage(strconv.FormatFloat(f, 'f', 1, 64))
				continue
			}
		}
		obj[k] = v
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses a JSON object written by EncodeMetadata. Numbers
// without a fraction or exponent come back as int64.
func DecodeMetadata(s string) (models.Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	m := make(models.Metadata, len(raw))
	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			m[k] = v
			continue
		}
		if i, err := n.Int64(); err == nil {
			m[k] = i
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("decode metadata %q: %w", k, err)
		}
		m[k] = f
	}
	return m, nil
}
