package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MarshalCanonical serializes a value as canonical JSON: object keys are
// sorted, numbers keep their source representation, and no insignificant
// whitespace is emitted. Two semantically equal values always serialize to
// identical bytes, which makes the output suitable for hashing.
func MarshalCanonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, decoded); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeCanonical writes one decoded JSON value in canonical form.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")

	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case json.Number:
		buf.WriteString(val.String())

	case string:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("failed to encode string: %w", err)
		}
		buf.Write(encoded)

	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("failed to encode key: %w", err)
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	default:
		return fmt.Errorf("unsupported canonical value type %T", v)
	}

	return nil
}
