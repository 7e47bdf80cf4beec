package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// storedValue keeps the Go type of a property value next to its JSON form so that dates,
// node refs and qnames survive a round trip through the properties column.
type storedValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

const (
	kindNull     = "null"
	kindString   = "s"
	kindBool     = "b"
	kindInt      = "i"
	kindLong     = "l"
	kindFloat    = "f"
	kindDate     = "d"
	kindNodeRef  = "r"
	kindNodeRefs = "R"
	kindQName    = "q"
	kindStrings  = "S"
	kindList     = "a"
	kindObject   = "o"
)

func encodeProperties(props map[domain.QName]any) (string, error) {
	out := make(map[string]storedValue, len(props))
	for name, value := range props {
		sv, err := encodeValue(value)
		if err != nil {
			return "", fmt.Errorf("property %s: %w", name, err)
		}
		out[name.String()] = sv
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeProperties(raw string) (map[domain.QName]any, error) {
	props := map[domain.QName]any{}
	if raw == "" {
		return props, nil
	}
	var stored map[string]storedValue
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	for key, sv := range stored {
		name, err := domain.ParseQName(key)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(sv)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", key, err)
		}
		props[name] = v
	}
	return props, nil
}

func encodeValue(value any) (storedValue, error) {
	kind := ""
	var payload any = value
	switch v := value.(type) {
	case nil:
		return storedValue{T: kindNull}, nil
	case string:
		kind = kindString
	case bool:
		kind = kindBool
	case int:
		kind = kindInt
	case int32:
		kind, payload = kindInt, int(v)
	case int64:
		kind = kindLong
	case float32:
		kind, payload = kindFloat, float64(v)
	case float64:
		kind = kindFloat
	case time.Time:
		kind, payload = kindDate, v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return storedValue{T: kindNull}, nil
		}
		kind, payload = kindDate, v.UTC().Format(time.RFC3339Nano)
	case domain.NodeRef:
		kind, payload = kindNodeRef, v.String()
	case []domain.NodeRef:
		refs := make([]string, len(v))
		for i, r := range v {
			refs[i] = r.String()
		}
		kind, payload = kindNodeRefs, refs
	case domain.QName:
		kind, payload = kindQName, v.String()
	case []string:
		kind = kindStrings
	case []any:
		items := make([]storedValue, len(v))
		for i, item := range v {
			sv, err := encodeValue(item)
			if err != nil {
				return storedValue{}, err
			}
			items[i] = sv
		}
		kind, payload = kindList, items
	default:
		kind = kindObject
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return storedValue{}, err
	}
	return storedValue{T: kind, V: b}, nil
}

func decodeValue(sv storedValue) (any, error) {
	switch sv.T {
	case kindNull, "":
		return nil, nil
	case kindString:
		var s string
		err := json.Unmarshal(sv.V, &s)
		return s, err
	case kindBool:
		var b bool
		err := json.Unmarshal(sv.V, &b)
		return b, err
	case kindInt:
		var i int
		err := json.Unmarshal(sv.V, &i)
		return i, err
	case kindLong:
		var i int64
		err := json.Unmarshal(sv.V, &i)
		return i, err
	case kindFloat:
		var f float64
		err := json.Unmarshal(sv.V, &f)
		return f, err
	case kindDate:
		var s string
		if err := json.Unmarshal(sv.V, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case kindNodeRef:
		var s string
		if err := json.Unmarshal(sv.V, &s); err != nil {
			return nil, err
		}
		return domain.ParseNodeRef(s)
	case kindNodeRefs:
		var refs []string
		if err := json.Unmarshal(sv.V, &refs); err != nil {
			return nil, err
		}
		out := make([]domain.NodeRef, 0, len(refs))
		for _, s := range refs {
			r, err := domain.ParseNodeRef(s)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	case kindQName:
		var s string
		if err := json.Unmarshal(sv.V, &s); err != nil {
			return nil, err
		}
		return domain.ParseQName(s)
	case kindStrings:
		var ss []string
		err := json.Unmarshal(sv.V, &ss)
		return ss, err
	case kindList:
		var items []storedValue
		if err := json.Unmarshal(sv.V, &items); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case kindObject:
		var v any
		err := json.Unmarshal(sv.V, &v)
		return v, err
	}
	return nil, fmt.Errorf("unknown stored value kind %q", sv.T)
}
