// internal/explainer/parse.go
package explainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/severity"
)

// ErrMalformedResponse indicates the generator output held no usable briefing
var ErrMalformedResponse = errors.New("malformed generation response")

var requiredKeys = []string{"summary", "severity", "impact", "action"}

type object map[string]json.RawMessage

// parseStages run in order; the first to yield an object wins
var parseStages = []struct {
	name string
	fn   func(string) (object, error)
}{
	{"direct", parseDirect},
	{"embedded", parseEmbedded},
}

// ParseBriefing extracts a briefing from raw generator text. It accepts a
// bare JSON object or the first object embedded in surrounding prose. All
// four required keys must hold non-blank strings; their text is kept
// verbatim.
func ParseBriefing(raw string) (protocol.Briefing, error) {
	var errs []string
	for _, stage := range parseStages {
		obj, err := stage.fn(raw)
		if err != nil {
			errs = append(errs, stage.name+": "+err.Error())
			continue
		}
		return briefingFrom(obj)
	}
	return protocol.Briefing{}, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(errs, "; "))
}

func parseDirect(raw string) (object, error) {
	return decodeObject(strings.TrimSpace(raw))
}

func parseEmbedded(raw string) (object, error) {
	sub, ok := extractObject(raw)
	if !ok {
		return nil, errors.New("no brace-delimited object")
	}
	return decodeObject(sub)
}

func decodeObject(s string) (object, error) {
	var obj object
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("null")
	}
	return obj, nil
}

// extractObject returns the first balanced {...} span, honoring JSON string
// quoting so braces inside values do not end the object early.
func extractObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

func briefingFrom(obj object) (protocol.Briefing, error) {
	values := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		raw, ok := obj[key]
		if !ok {
			return protocol.Briefing{}, fmt.Errorf("%w: missing %q", ErrMalformedResponse, key)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return protocol.Briefing{}, fmt.Errorf("%w: %q is not a string", ErrMalformedResponse, key)
		}
		if strings.TrimSpace(s) == "" {
			return protocol.Briefing{}, fmt.Errorf("%w: %q is empty", ErrMalformedResponse, key)
		}
		values[key] = s
	}

	return protocol.Briefing{
		Summary:  values["summary"],
		Severity: values["severity"],
		Impact:   values["impact"],
		Action:   values["action"],
	}, nil
}

// Fallback is the templated briefing used when generation fails. It depends
// only on its arguments and cannot fail.
func Fallback(attackType string, confidence float64) protocol.Briefing {
	return protocol.Briefing{
		Summary:  fmt.Sprintf("%s attack detected with %.0f%% confidence.", attackType, confidence),
		Severity: string(severity.For(attackType)),
		Impact:   "Potential unauthorized access or service disruption.",
		Action:   "Isolate the affected endpoint and review logs immediately.",
		Fallback: true,
	}
}
