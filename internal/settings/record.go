package settings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key is the well-known key the settings record is stored under.
const Key = "settings"

// Decode parses a stored settings record and merges it over Default().
// Fields present in the record win. Fields missing from it keep their
// default. Stored rules keep their order; default rules whose attribute is
// missing from the stored chain are appended, and labels dropped by older
// records are restored.
func Decode(data []byte) (Settings, error) {
	out := Default()
	out.Sorting = nil

	if err := json.Unmarshal(data, &out); err != nil {
		return Default(), fmt.Errorf("decode settings: %w", err)
	}

	if out.Sorting == nil {
		out.Sorting = DefaultRules()
		return out, nil
	}

	out.Sorting = normalizeRules(out.Sorting)
	return out, nil
}

// Encode serialises s for storage.
func Encode(s Settings) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

func normalizeRules(stored []SortRule) []SortRule {
	defaults := make(map[string]SortRule)
	for _, r := range DefaultRules() {
		defaults[strings.ToLower(r.Attr)] = r
	}

	seen := make(map[string]bool)
	var rules []SortRule
	for _, r := range stored {
		attr := strings.ToLower(r.Attr)
		if attr == "" || seen[attr] {
			continue
		}
		// Older records stored the duration key under its resolved field name.
		if attr == "liveduration" {
			attr = strings.ToLower(AttrDuration)
			r.Attr = AttrDuration
			if seen[attr] {
				continue
			}
		}
		d, ok := defaults[attr]
		if !ok {
			continue
		}
		seen[attr] = true

		r.Attr = d.Attr
		if r.Title == "" {
			r.Title = d.Title
		}
		if len(r.Dropdown) < 2 {
			r.Dropdown = d.Dropdown
		}
		rules = append(rules, r)
	}

	for _, d := range DefaultRules() {
		if !seen[strings.ToLower(d.Attr)] {
			rules = append(rules, d)
		}
	}

	for i := range rules {
		rules[i].Order = i
	}
	return rules
}
