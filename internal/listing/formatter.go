package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bayleafwalker/msrv/internal/graph"
	"github.com/bayleafwalker/msrv/internal/resolver"
)

const (
	// VariantOrderedByMSRV identifies this report in the JSON document.
	VariantOrderedByMSRV = "ordered-by-msrv"

	reasonList = "list"
)

// Formatter renders the dependencies of a graph grouped by requirement.
//
// For example:
//
//	┌────────┬──────────────────────────┐
//	│ MSRV   │ Dependency               │
//	├────────┼──────────────────────────┤
//	│ 1.31.0 │ serde                    │
//	├────────┼──────────────────────────┤
//	│ 1.60.0 │ some-dep, some-other-dep │
//	└────────┴──────────────────────────┘
type Formatter struct {
	graph    *graph.DependencyGraph
	resolver resolver.Resolver
}

func NewFormatter(g *graph.DependencyGraph, r resolver.Resolver) *Formatter {
	return &Formatter{graph: g, resolver: r}
}

// Table renders the human readable table.
func (f *Formatter) Table(ctx context.Context) (string, error) {
	t, err := Project(ctx, f.graph, f.resolver, newTable, appendRow)
	if err != nil {
		return "", err
	}
	return t.Render(), nil
}

// RenderTable renders an already aggregated result as Table does.
func RenderTable(res Result) string {
	return Fold(res, newTable, appendRow).Render()
}

func newTable() table.Writer {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Options.SeparateRows = true

	t := table.NewWriter()
	t.SetStyle(style)
	t.AppendHeader(table.Row{"MSRV", "Dependency"})
	return t
}

func appendRow(acc *table.Writer, next Values) {
	(*acc).AppendRow(table.Row{next.Requirement, strings.Join(next.Dependencies, ", ")})
}

type document struct {
	Reason  string   `json:"reason"`
	Variant string   `json:"variant"`
	Success bool     `json:"success"`
	List    []record `json:"list"`
}

type record struct {
	Requirement  string   `json:"requirement"`
	Dependencies []string `json:"dependencies"`
}

// Document renders the compact JSON report.
func (f *Formatter) Document(ctx context.Context) ([]byte, error) {
	records, err := Project(ctx, f.graph, f.resolver, newRecords, appendRecord)
	if err != nil {
		return nil, err
	}
	return encode(records)
}

// RenderDocument renders an already aggregated result as Document does.
func RenderDocument(res Result) ([]byte, error) {
	return encode(Fold(res, newRecords, appendRecord))
}

func newRecords() []record { return []record{} }

func appendRecord(acc *[]record, next Values) {
	*acc = append(*acc, record{Requirement: next.Requirement, Dependencies: next.Dependencies})
}

func encode(records []record) ([]byte, error) {
	data, err := json.Marshal(document{
		Reason:  reasonList,
		Variant: VariantOrderedByMSRV,
		Success: true,
		List:    records,
	})
	if err != nil {
		return nil, fmt.Errorf("listing: encode document: %w", err)
	}
	return data, nil
}
