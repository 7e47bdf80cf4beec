package modelbuilder

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/viant/toolbox"
)

// ParseTaskProperties converts a decoded JSON body of a task update into task properties.
// Keys use the bpm_priority form. Values of modelled properties and associations are converted
// to their declared type. Unmodelled values follow the type of the value already on the task,
// otherwise they are kept as sent. JSON null maps to a nil value, which removes the property.
func (b *WorkflowModelBuilder) ParseTaskProperties(task *domain.WorkflowTask, body map[string]any) (map[domain.QName]any, error) {
	props := make(map[domain.QName]any, len(body))
	for key, raw := range body {
		q, err := b.ResolveKey(key)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", key, err)
		}
		if raw == nil {
			props[q] = nil
			continue
		}
		var value any
		if def := b.dictionary.GetProperty(q); def != nil {
			value, err = b.dictionary.ConvertValue(def, raw)
		} else if assoc := b.dictionary.GetAssociation(q); assoc != nil {
			value, err = b.dictionary.ConvertAssociation(assoc, raw)
		} else {
			value, err = convertLike(task.Property(q), raw)
		}
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", key, err)
		}
		props[q] = value
	}
	return props, nil
}

// convertLike converts raw to the Go type of existing. Without an existing value JSON scalars keep
// their JSON type.
func convertLike(existing, raw any) (any, error) {
	switch v := raw.(type) {
	case []any, map[string]any:
		return raw, nil
	case json.Number:
		if existing == nil {
			if i, err := v.Int64(); err == nil {
				return i, nil
			}
			return v.Float64()
		}
	case string, bool, float64, int, int64:
		if existing == nil {
			return raw, nil
		}
	}
	switch existing.(type) {
	case int:
		return toolbox.ToInt(raw)
	case int64:
		i, err := toolbox.ToInt(raw)
		return int64(i), err
	case float64:
		return toolbox.ToFloat(raw)
	case bool:
		return toolbox.ToBoolean(raw)
	case time.Time:
		return dictionary.ParseISO8601(toolbox.AsString(raw))
	case domain.NodeRef:
		return domain.ParseNodeRef(strings.TrimSpace(toolbox.AsString(raw)))
	}
	return toolbox.AsString(raw), nil
}

const (
	assocAddedSuffix   = "_added"
	assocRemovedSuffix = "_removed"
)

// SplitAssociationChanges takes the bpm_pooledActors_added and bpm_pooledActors_removed style keys
// out of body and returns the node references to add to and remove from each association.
func (b *WorkflowModelBuilder) SplitAssociationChanges(body map[string]any) (add, remove map[domain.QName][]domain.NodeRef, err error) {
	add = map[domain.QName][]domain.NodeRef{}
	remove = map[domain.QName][]domain.NodeRef{}
	for key, raw := range body {
		target := add
		base, found := strings.CutSuffix(key, assocAddedSuffix)
		if !found {
			if base, found = strings.CutSuffix(key, assocRemovedSuffix); !found {
				continue
			}
			target = remove
		}
		q, err := b.ResolveKey(base)
		if err != nil || b.dictionary.GetAssociation(q) == nil {
			continue
		}
		refs, err := parseRefList(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("association %s: %w", key, err)
		}
		target[q] = append(target[q], refs...)
		delete(body, key)
	}
	return add, remove, nil
}

// parseRefList accepts a comma separated string or a JSON array of node references.
func parseRefList(raw any) ([]domain.NodeRef, error) {
	var items []string
	switch v := raw.(type) {
	case nil:
	case []any:
		for _, item := range v {
			items = append(items, toolbox.AsString(item))
		}
	default:
		items = strings.Split(toolbox.AsString(v), ",")
	}
	refs := make([]domain.NodeRef, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		ref, err := domain.ParseNodeRef(item)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
