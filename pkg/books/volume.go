package books

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// VolumesResponse is the body of GET /volumes.
type VolumesResponse struct {
	Kind       string   `json:"kind"`
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Volume is a single search hit.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo holds the bibliographic fields we read.
// Description stays raw so a mistyped value only affects this volume.
type VolumeInfo struct {
	Title       string          `json:"title"`
	Authors     []string        `json:"authors"`
	Description json.RawMessage `json:"description,omitempty"`
}

// DescriptionText returns the volume description.
// An absent, null or non-string description yields ErrMissingField.
func (v *Volume) DescriptionText() (string, error) {
	raw := bytes.TrimSpace(v.VolumeInfo.Description)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: volume %q has no description", ErrMissingField, v.ID)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%w: volume %q description is not a string", ErrMissingField, v.ID)
	}
	return text, nil
}

// NormalizeISBN strips hyphens and spaces from an ISBN.
func NormalizeISBN(isbn string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(isbn))
}
