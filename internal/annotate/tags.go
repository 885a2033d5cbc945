package annotate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/semlayer/semlayer/internal/semantic"
)

// Struct tags read by FromStruct
const (
	TagDescription = "semantic"
	TagPrivacy     = "privacy"
	TagSynonyms    = "synonyms"
	TagSamples     = "samples"
	TagRules       = "rules"
)

// FromStruct registers the annotations declared on a Go model type.
//
// Field tags describe columns: `semantic:"description" privacy:"confidential"
// synonyms:"a,b" samples:"x,y" rules:"rule one;rule two"`. The column name comes from the
// bun tag, then the db tag, then the snake_cased field name. A `semantic` tag on a bun
// relation field (`bun:"rel:..."`) describes that relationship, named after the Go field.
// If the model implements TableAnnotated its table annotation is registered too.
func FromStruct(table string, model any, catalog *Catalog) error {
	// typed nil pointers such as (*User)(nil) are common model handles
	if v := reflect.ValueOf(model); v.Kind() == reflect.Ptr && v.IsNil() {
		model = reflect.New(v.Type().Elem()).Interface()
	}

	if annotated, ok := model.(TableAnnotated); ok {
		if err := catalog.Table(table, annotated.SemanticTable()); err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}

	t := reflect.TypeOf(model)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("annotate: %s is not a struct type", t)
	}

	return extractFieldAnnotations(table, t, catalog)
}

func extractFieldAnnotations(table string, t reflect.Type, catalog *Catalog) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := extractFieldAnnotations(table, ft, catalog); err != nil {
					return err
				}
			}
			continue
		}

		if !field.IsExported() {
			continue
		}

		description := field.Tag.Get(TagDescription)

		if isRelationField(field) {
			if description != "" {
				catalog.Relationship(table, field.Name, RelationshipInfo{Description: description})
			}
			continue
		}

		info := ColumnInfo{
			Description:      description,
			Synonyms:         splitList(field.Tag.Get(TagSynonyms), ","),
			SampleValues:     splitList(field.Tag.Get(TagSamples), ","),
			ApplicationRules: splitList(field.Tag.Get(TagRules), ";"),
		}
		if privacy := field.Tag.Get(TagPrivacy); privacy != "" {
			level, err := semantic.ParsePrivacyLevel(privacy)
			if err != nil {
				return fmt.Errorf("table %s field %s: %w: %s", table, field.Name, ErrUnknownPrivacyLevel, privacy)
			}
			info.PrivacyLevel = &level
		}

		if info.Description == "" && info.PrivacyLevel == nil && info.Synonyms == nil &&
			info.SampleValues == nil && info.ApplicationRules == nil {
			continue
		}

		column := ColumnName(field)
		if column == "" {
			continue
		}
		catalog.Column(table, column, info)
	}

	return nil
}

// ColumnName resolves the column name of a struct field from its bun or db tag, falling
// back to the snake_cased field name. It returns "" for fields tagged "-".
func ColumnName(field reflect.StructField) string {
	for _, key := range []string{"bun", "db"} {
		tag, ok := field.Tag.Lookup(key)
		if !ok {
			continue
		}
		name := strings.TrimSpace(strings.Split(tag, ",")[0])
		if name == "-" {
			return ""
		}
		if name != "" && !strings.Contains(name, ":") {
			return name
		}
	}
	return toSnakeCase(field.Name)
}

func isRelationField(field reflect.StructField) bool {
	for _, opt := range strings.Split(field.Tag.Get("bun"), ",") {
		if strings.HasPrefix(strings.TrimSpace(opt), "rel:") {
			return true
		}
	}
	return false
}

func splitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// toSnakeCase converts a Go identifier to snake_case ("UserID" -> "user_id")
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
