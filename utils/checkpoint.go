package utils

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/x448/float16"
)

// CheckpointVersion is written into every checkpoint this build produces.
const CheckpointVersion = "1.0"

// ArchSpec describes a generator architecture inside a checkpoint header.
type ArchSpec struct {
	Resolution   int `json:"resolution"`
	LatentDim    int `json:"latent_dim"`
	ChannelBase  int `json:"channel_base"`
	MaxWidth     int `json:"max_width"`
	MappingDepth int `json:"mapping_depth"`
}

// ParamData is one serialized weight tensor. Payloads are stored as base64
// of little-endian IEEE-754 half floats to keep checkpoints small; values
// are widened back to float64 on load.
type ParamData struct {
	Shape []int  `json:"shape"`
	F16   string `json:"f16"`
}

// Checkpoint is the on-disk network format.
type Checkpoint struct {
	Version string               `json:"version"`
	Arch    ArchSpec             `json:"arch"`
	Params  map[string]ParamData `json:"params"`
}

// SaveCheckpoint writes a checkpoint as JSON.
func SaveCheckpoint(path string, ck *Checkpoint) error {
	data, err := json.MarshalIndent(ck, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCheckpoint reads a checkpoint from a stream.
func LoadCheckpoint(r io.Reader) (*Checkpoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var ck Checkpoint
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if ck.Version == "" {
		return nil, fmt.Errorf("checkpoint has no version field")
	}
	return &ck, nil
}

// PackF16 encodes values as base64 over little-endian half floats.
func PackF16(values []float64) string {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], float16.Fromfloat32(float32(v)).Bits())
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// UnpackF16 decodes a PackF16 payload back to float64 values.
func UnpackF16(encoded string) ([]float64, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("bad base64 payload: %w", err)
	}
	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of 2", len(buf))
	}
	values := make([]float64, len(buf)/2)
	for i := range values {
		bits := binary.LittleEndian.Uint16(buf[2*i:])
		values[i] = float64(float16.Frombits(bits).Float32())
	}
	return values, nil
}
