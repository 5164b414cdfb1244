package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawReport is the decoded genary.json payload for one poll cycle.
type RawReport struct {
	UpdateTime string
	Rows       []RawRow
}

// RawRow holds the textual cells of one aaData entry.
type RawRow []string

// updateTimeKeys lists where the update time may live, in priority order.
// Taipower publishes it under the empty key.
var updateTimeKeys = []string{"", "time"}

// UnmarshalJSON decodes the report, turning every cell into text.
func (r *RawReport) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.UpdateTime = ""
	for _, key := range updateTimeKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		s, err := cellText(raw)
		if err != nil {
			return fmt.Errorf("update time: %w", err)
		}
		r.UpdateTime = s
		break
	}

	r.Rows = nil
	raw, ok := fields["aaData"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("aaData: %w", err)
	}
	r.Rows = make([]RawRow, 0, len(rows))
	for i, cells := range rows {
		row := make(RawRow, len(cells))
		for j, c := range cells {
			s, err := cellText(c)
			if err != nil {
				return fmt.Errorf("aaData[%d][%d]: %w", i, j, err)
			}
			row[j] = s
		}
		r.Rows = append(r.Rows, row)
	}
	return nil
}

// cellText renders a JSON scalar as text. Numbers keep their literal form.
func cellText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("unexpected composite cell %s", string(raw))
	default:
		return string(raw), nil
	}
}
