package pipeline

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"audio-studio/pkg/models"

	"github.com/go-audio/wav"
)

// Probe fills in the asset's checksum and, for WAV data, its stream
// parameters. Non-WAV assets only get the checksum.
func Probe(asset *models.Asset) {
	sum := sha256.Sum256(asset.Data)
	asset.Checksum = fmt.Sprintf("%x", sum)
	asset.Size = len(asset.Data)

	if asset.Metadata == nil {
		asset.Metadata = make(map[string]interface{})
	}

	dec := wav.NewDecoder(bytes.NewReader(asset.Data))
	if !dec.IsValidFile() {
		asset.Metadata["format"] = "unknown"
		return
	}

	asset.Metadata["format"] = "wav"
	asset.Metadata["sample_rate"] = int(dec.SampleRate)
	asset.Metadata["channels"] = int(dec.NumChans)
	asset.Metadata["bit_depth"] = int(dec.BitDepth)
	if d, err := dec.Duration(); err == nil {
		asset.Metadata["duration"] = d.Seconds()
	}
}
