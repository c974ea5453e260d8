package utils

import (
	"errors"
	"strconv"
	"strings"
)

// ErrEmptySelection is returned when a multi-select input resolves to no choices
var ErrEmptySelection = errors.New("selection resolved to no choices")

// ParseSelection resolves a comma-separated list of 1-based indices against
// the snapshotted choice list. Out-of-range indices are silently dropped;
// a non-numeric token or an empty resulting selection fails the whole input.
func ParseSelection(raw string, choices []string) ([]string, error) {
	var selected []string
	for _, token := range strings.Split(raw, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		if idx < 1 || idx > len(choices) {
			continue
		}
		selected = append(selected, choices[idx-1])
	}
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}
	return selected, nil
}
