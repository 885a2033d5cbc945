package ui

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/semlayer/semlayer/internal/semantic"
)

const descriptionWidth = 60

// RenderLayer prints the layer's tables, relationships and glossary
func RenderLayer(w io.Writer, layer *semantic.Layer, noColor bool) {
	names := layer.TableNames()

	Header(w, fmt.Sprintf("Tables (%d)", len(names)), noColor)
	tables := NewTable(w, []string{"TABLE", "COLUMNS", "PRIMARY KEY", "DESCRIPTION"}, &TableOptions{
		NoColor:      noColor,
		MaxCellWidth: descriptionWidth,
	})
	for _, name := range names {
		t := layer.Tables[name]
		tables.AddRow(t.Name, strconv.Itoa(len(t.Columns)), deref(t.PrimaryKey), t.Description)
	}
	tables.Render()
	fmt.Fprintln(w)

	Header(w, fmt.Sprintf("Relationships (%d)", len(layer.Relationships)), noColor)
	rels := NewTable(w, []string{"FROM", "TO", "TYPE", "JOIN"}, &TableOptions{NoColor: noColor})
	for _, r := range layer.Relationships {
		rels.AddRow(r.FromTable, r.ToTable, r.RelationshipType.String(), r.JoinCondition)
	}
	rels.Render()

	if len(layer.ApplicationGlossary) > 0 {
		fmt.Fprintln(w)
		Header(w, "Glossary", noColor)
		terms := make([]string, 0, len(layer.ApplicationGlossary))
		for term := range layer.ApplicationGlossary {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		glossary := NewKeyValueTable(w, noColor)
		for _, term := range terms {
			glossary.AddRow(term, layer.ApplicationGlossary[term])
		}
		glossary.Render()
	}
}

// RenderTable prints one table's metadata and its columns
func RenderTable(w io.Writer, table semantic.Table, noColor bool) {
	Header(w, table.Name, noColor)

	info := NewKeyValueTable(w, noColor)
	info.AddRow("Description", table.Description)
	info.AddRow("Primary key", deref(table.PrimaryKey))
	info.AddRow("Synonyms", strings.Join(table.Synonyms, ", "))
	info.AddRow("SQL filters", strings.Join(table.SQLFilters, "; "))
	info.AddRow("Application", deref(table.ApplicationContext))
	info.AddRow("Business", deref(table.BusinessContext))
	info.Render()
	fmt.Fprintln(w)

	columns := NewTable(w, []string{"COLUMN", "TYPE", "PRIVACY", "REFERENCES", "DESCRIPTION"}, &TableOptions{
		NoColor:      noColor,
		MaxCellWidth: descriptionWidth,
	})
	for _, c := range table.Columns {
		columns.AddRow(c.Name, c.DataType, c.PrivacyLevel.String(), deref(c.References), c.Description)
	}
	columns.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
