package recorder

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/livepanels/internal/placement"
)

func marshalRecord(r placement.Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal placement record: %w", err)
	}
	return string(b), nil
}
