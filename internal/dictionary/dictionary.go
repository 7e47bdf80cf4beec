package dictionary

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"gopkg.in/yaml.v3"
)

//go:embed models/*.yaml
var modelFS embed.FS

const (
	DataTypeText     = "d:text"
	DataTypeMLText   = "d:mltext"
	DataTypeInt      = "d:int"
	DataTypeLong     = "d:long"
	DataTypeFloat    = "d:float"
	DataTypeDouble   = "d:double"
	DataTypeBoolean  = "d:boolean"
	DataTypeDate     = "d:date"
	DataTypeDateTime = "d:datetime"
	DataTypeNodeRef  = "d:noderef"
	DataTypeQName    = "d:qname"
	DataTypeAny      = "d:any"
)

type PropertyDefinition struct {
	Name          domain.QName
	DataType      string
	Multiple      bool
	Default       any
	ContainerType domain.QName
}

type AssociationDefinition struct {
	Name   domain.QName
	Target domain.QName
	Many   bool
}

type ClassDefinition struct {
	Name         domain.QName
	Parent       domain.QName
	Title        string
	Description  string
	Properties   []*PropertyDefinition
	Associations []*AssociationDefinition
}

// model files
type modelFile struct {
	Namespaces []struct {
		Prefix string `yaml:"prefix"`
		URI    string `yaml:"uri"`
	} `yaml:"namespaces"`
	Types []struct {
		Name        string `yaml:"name"`
		Parent      string `yaml:"parent"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Properties  []struct {
			Name     string `yaml:"name"`
			Type     string `yaml:"type"`
			Multiple bool   `yaml:"multiple"`
			Default  any    `yaml:"default"`
		} `yaml:"properties"`
		Associations []struct {
			Name   string `yaml:"name"`
			Target string `yaml:"target"`
			Many   bool   `yaml:"many"`
		} `yaml:"associations"`
	} `yaml:"types"`
}

// Service answers questions about the content model: types, their properties and associations.
type Service struct {
	namespaces   *NamespaceService
	types        map[domain.QName]*ClassDefinition
	properties   map[domain.QName]*PropertyDefinition
	associations map[domain.QName]*AssociationDefinition
}

// Load reads the embedded content model.
func Load() (*Service, error) {
	files, err := fs.Glob(modelFS, "models/*.yaml")
	if err != nil {
		return nil, err
	}
	docs := make([][]byte, 0, len(files))
	for _, f := range files {
		b, err := modelFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, b)
	}
	return LoadFromBytes(docs...)
}

// LoadFromBytes builds a dictionary from one or more YAML model documents.
// Namespaces of all documents are registered before any type is resolved.
func LoadFromBytes(docs ...[]byte) (*Service, error) {
	s := &Service{
		namespaces:   NewNamespaceService(),
		types:        map[domain.QName]*ClassDefinition{},
		properties:   map[domain.QName]*PropertyDefinition{},
		associations: map[domain.QName]*AssociationDefinition{},
	}
	models := make([]modelFile, 0, len(docs))
	for _, doc := range docs {
		var m modelFile
		if err := yaml.Unmarshal(doc, &m); err != nil {
			return nil, fmt.Errorf("parse content model: %w", err)
		}
		for _, ns := range m.Namespaces {
			s.namespaces.Register(ns.Prefix, ns.URI)
		}
		models = append(models, m)
	}

	for _, m := range models {
		for _, t := range m.Types {
			name, err := s.namespaces.ResolveQName(t.Name)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", t.Name, err)
			}
			class := &ClassDefinition{Name: name, Title: t.Title, Description: t.Description}
			if t.Parent != "" {
				if class.Parent, err = s.namespaces.ResolveQName(t.Parent); err != nil {
					return nil, fmt.Errorf("type %s parent: %w", t.Name, err)
				}
			}
			for _, p := range t.Properties {
				pn, err := s.namespaces.ResolveQName(p.Name)
				if err != nil {
					return nil, fmt.Errorf("type %s property %s: %w", t.Name, p.Name, err)
				}
				def := &PropertyDefinition{Name: pn, DataType: p.Type, Multiple: p.Multiple, ContainerType: name}
				if p.Default != nil {
					if def.Default, err = s.ConvertValue(def, p.Default); err != nil {
						return nil, fmt.Errorf("type %s property %s default: %w", t.Name, p.Name, err)
					}
				}
				class.Properties = append(class.Properties, def)
				if _, exists := s.properties[pn]; !exists {
					s.properties[pn] = def
				}
			}
			for _, a := range t.Associations {
				an, err := s.namespaces.ResolveQName(a.Name)
				if err != nil {
					return nil, fmt.Errorf("type %s association %s: %w", t.Name, a.Name, err)
				}
				target, err := s.namespaces.ResolveQName(a.Target)
				if err != nil {
					return nil, fmt.Errorf("type %s association %s target: %w", t.Name, a.Name, err)
				}
				def := &AssociationDefinition{Name: an, Target: target, Many: a.Many}
				class.Associations = append(class.Associations, def)
				if _, exists := s.associations[an]; !exists {
					s.associations[an] = def
				}
			}
			s.types[name] = class
		}
	}

	for _, class := range s.types {
		if class.Parent.IsZero() {
			continue
		}
		if _, ok := s.types[class.Parent]; !ok {
			return nil, fmt.Errorf("type %s: unknown parent %s", class.Name, class.Parent)
		}
	}
	return s, nil
}

func (s *Service) Namespaces() *NamespaceService { return s.namespaces }

// GetType returns the class definition, nil when unknown.
func (s *Service) GetType(name domain.QName) *ClassDefinition {
	return s.types[name]
}

// GetProperty returns the property definition, nil when the property is not modelled.
func (s *Service) GetProperty(name domain.QName) *PropertyDefinition {
	return s.properties[name]
}

func (s *Service) GetAssociation(name domain.QName) *AssociationDefinition {
	return s.associations[name]
}

// IsSubClass reports whether class equals parent or inherits from it.
func (s *Service) IsSubClass(class, parent domain.QName) bool {
	for c := s.types[class]; c != nil; c = s.types[c.Parent] {
		if c.Name == parent {
			return true
		}
	}
	return false
}

// TypeProperties returns the properties of a type including inherited ones. A subtype
// definition wins over the parent's.
func (s *Service) TypeProperties(name domain.QName) map[domain.QName]*PropertyDefinition {
	out := map[domain.QName]*PropertyDefinition{}
	for _, c := range s.lineage(name) {
		for _, p := range c.Properties {
			out[p.Name] = p
		}
	}
	return out
}

func (s *Service) TypeAssociations(name domain.QName) map[domain.QName]*AssociationDefinition {
	out := map[domain.QName]*AssociationDefinition{}
	for _, c := range s.lineage(name) {
		for _, a := range c.Associations {
			out[a.Name] = a
		}
	}
	return out
}

// lineage returns the class hierarchy from the root down to name.
func (s *Service) lineage(name domain.QName) []*ClassDefinition {
	var chain []*ClassDefinition
	seen := map[domain.QName]bool{}
	for c := s.types[name]; c != nil && !seen[c.Name]; c = s.types[c.Parent] {
		seen[c.Name] = true
		chain = append([]*ClassDefinition{c}, chain...)
	}
	return chain
}

// Title returns the type title, falling back to the prefixed name.
func (s *Service) Title(name domain.QName) string {
	if c := s.types[name]; c != nil && c.Title != "" {
		return c.Title
	}
	return s.namespaces.PrefixString(name)
}

// Description returns the type description, falling back to the title.
func (s *Service) Description(name domain.QName) string {
	if c := s.types[name]; c != nil && c.Description != "" {
		return c.Description
	}
	return s.Title(name)
}

// TypeDefinition resolves a prefixed type name into the domain type metadata.
func (s *Service) TypeDefinition(name domain.QName) domain.TypeDefinition {
	return domain.TypeDefinition{Name: name, Title: s.Title(name), Description: s.Description(name)}
}

// ResolveTypeName accepts prefix:local and returns the QName of a known type.
func (s *Service) ResolveTypeName(prefixed string) (domain.QName, error) {
	q, err := s.namespaces.ResolveQName(prefixed)
	if err != nil {
		return domain.QName{}, err
	}
	if _, ok := s.types[q]; !ok {
		return domain.QName{}, fmt.Errorf("unknown type %s", strings.TrimSpace(prefixed))
	}
	return q, nil
}
