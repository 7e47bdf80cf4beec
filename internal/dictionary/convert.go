package dictionary

import (
	"fmt"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/viant/toolbox"
)

// ISO8601 is the layout used for every date written by the API.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

var iso8601Layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISO8601 accepts the ISO8601 variants clients commonly send. Values without a zone are UTC.
func ParseISO8601(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO8601 date %q", s)
}

func FormatISO8601(t time.Time) string {
	return t.Format(ISO8601)
}

// ConvertValue converts a decoded JSON or YAML value to the Go type of the property's data type.
// Multi-valued properties convert element-wise and always yield []any.
func (s *Service) ConvertValue(def *PropertyDefinition, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if list, ok := raw.([]any); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			v, err := s.convertScalar(def.DataType, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	v, err := s.convertScalar(def.DataType, raw)
	if err != nil {
		return nil, err
	}
	if def.Multiple {
		return []any{v}, nil
	}
	return v, nil
}

func (s *Service) convertScalar(dataType string, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch dataType {
	case DataTypeText, DataTypeMLText:
		return toolbox.AsString(raw), nil
	case DataTypeInt:
		return toolbox.ToInt(raw)
	case DataTypeLong:
		i, err := toolbox.ToInt(raw)
		return int64(i), err
	case DataTypeFloat, DataTypeDouble:
		return toolbox.ToFloat(raw)
	case DataTypeBoolean:
		return toolbox.ToBoolean(raw)
	case DataTypeDate, DataTypeDateTime:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			if v == "" {
				return nil, nil
			}
			return ParseISO8601(v)
		}
		return nil, fmt.Errorf("cannot convert %T to %s", raw, dataType)
	case DataTypeNodeRef:
		switch v := raw.(type) {
		case domain.NodeRef:
			return v, nil
		case string:
			if v == "" {
				return nil, nil
			}
			return domain.ParseNodeRef(v)
		}
		return nil, fmt.Errorf("cannot convert %T to %s", raw, dataType)
	case DataTypeQName:
		switch v := raw.(type) {
		case domain.QName:
			return v, nil
		case string:
			return s.namespaces.ResolveQName(v)
		}
		return nil, fmt.Errorf("cannot convert %T to %s", raw, dataType)
	}
	return raw, nil
}

// ConvertAssociation converts association targets given as node ref strings.
func (s *Service) ConvertAssociation(def *AssociationDefinition, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	toRef := func(v any) (domain.NodeRef, error) {
		switch ref := v.(type) {
		case domain.NodeRef:
			return ref, nil
		case string:
			return domain.ParseNodeRef(strings.TrimSpace(ref))
		}
		return domain.NodeRef{}, fmt.Errorf("cannot convert %T to an association target", v)
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case string:
		// comma separated refs are accepted for multi-valued associations
		if def.Many && strings.Contains(v, ",") {
			for _, part := range strings.Split(v, ",") {
				items = append(items, part)
			}
		} else {
			items = []any{v}
		}
	default:
		items = []any{v}
	}
	refs := make([]domain.NodeRef, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok && strings.TrimSpace(str) == "" {
			continue
		}
		ref, err := toRef(item)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if def.Many {
		return refs, nil
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs[0], nil
}
