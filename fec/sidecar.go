package fec

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/etalazz/durapack/errs"
)

// FecIndexEntry is the sidecar record for one protected block: which block
// it starts at, how many data and parity shards it has, and the frame ids
// the parity shards were written as.
type FecIndexEntry struct {
	BlockStartID   uint64   `json:"block_start_id"`
	Data           int      `json:"data"`
	Parity         int      `json:"parity"`
	ParityFrameIDs []uint64 `json:"parity_frame_ids"`
}

// legacyEntry mirrors FecIndexEntry but accepts the legacy underscore-
// prefixed key for parity_frame_ids, for backward compatibility.
type legacyEntry struct {
	BlockStartID    uint64   `json:"block_start_id"`
	Data            int      `json:"data"`
	Parity          int      `json:"parity"`
	ParityFrameIDs  []uint64 `json:"parity_frame_ids"`
	LegacyParityIDs []uint64 `json:"_parity_frame_ids"`
}

var sidecarSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"block_start_id": {"type": "integer", "minimum": 0},
			"data": {"type": "integer", "minimum": 0},
			"parity": {"type": "integer", "minimum": 0},
			"parity_frame_ids": {"type": "array", "items": {"type": "integer"}},
			"_parity_frame_ids": {"type": "array", "items": {"type": "integer"}}
		},
		"required": ["block_start_id", "data", "parity"]
	}
}`

// WriteSidecar marshals entries as pretty-printed UTF-8 JSON.
func WriteSidecar(entries []FecIndexEntry) ([]byte, error) {
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, errs.NewSerialization(err.Error())
	}
	return out, nil
}

// ReadSidecar validates raw against the sidecar JSON Schema, then decodes
// it, tolerating a leading underscore on parity_frame_ids for backward
// compatibility with older writers.
func ReadSidecar(raw []byte) ([]FecIndexEntry, error) {
	schemaLoader := gojsonschema.NewStringLoader(sidecarSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, errs.NewSerialization(err.Error())
	}
	if !result.Valid() {
		msg := "sidecar document failed schema validation"
		if len(result.Errors()) > 0 {
			msg = result.Errors()[0].String()
		}
		return nil, errs.NewSerialization(msg)
	}

	var legacy []legacyEntry
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, errs.NewSerialization(err.Error())
	}

	entries := make([]FecIndexEntry, len(legacy))
	for i, l := range legacy {
		ids := l.ParityFrameIDs
		if len(ids) == 0 {
			ids = l.LegacyParityIDs
		}
		entries[i] = FecIndexEntry{
			BlockStartID:   l.BlockStartID,
			Data:           l.Data,
			Parity:         l.Parity,
			ParityFrameIDs: ids,
		}
	}
	return entries, nil
}
