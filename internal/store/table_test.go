package store

import (
	"context"
	"strings"
	"testing"

	"groundwork/internal/query"
)

func widgetTable() *TableStorage {
	return NewTableStorage(&Store{Dialect: &PostgresDialect{}}, "widgets")
}

func TestBuildWhere(t *testing.T) {
	table := widgetTable()

	pb := table.store.Dialect.NewParamBuilder()
	where, err := table.buildWhere(&query.Filter{
		Where: []query.Where{
			query.Eq("kind", "gear"),
			{Field: "price", Operator: "gte", Value: 10},
		},
		Or: []query.Where{
			{Field: "name", Operator: "contains", Value: "bolt"},
			{Field: "description", Operator: "contains", Value: "bolt"},
		},
	}, pb)
	if err != nil {
		t.Fatalf("build where failed: %v", err)
	}

	want := " WHERE kind = $1 AND price >= $2 AND (LOWER(name) LIKE LOWER($3) OR LOWER(description) LIKE LOWER($4))"
	if where != want {
		t.Fatalf("got %q, want %q", where, want)
	}

	params := pb.Params()
	if len(params) != 4 || params[0] != "gear" || params[1] != 10 {
		t.Fatalf("unexpected params %v", params)
	}
	if params[2] != "%bolt%" || params[3] != "%bolt%" {
		t.Fatalf("expected contains values to be wrapped, got %v", params[2:])
	}
}

func TestBuildWhereEmpty(t *testing.T) {
	table := widgetTable()
	pb := table.store.Dialect.NewParamBuilder()

	for _, filter := range []any{nil, (*query.Filter)(nil), &query.Filter{}} {
		where, err := table.buildWhere(filter, pb)
		if err != nil {
			t.Fatalf("build where failed: %v", err)
		}
		if where != "" {
			t.Fatalf("expected empty clause, got %q", where)
		}
	}
}

func TestBuildWhereRejectsForeignShapes(t *testing.T) {
	table := widgetTable()
	pb := table.store.Dialect.NewParamBuilder()

	if _, err := table.buildWhere(map[string]any{"kind": "gear"}, pb); err == nil {
		t.Fatal("expected unknown filter shape to be rejected")
	}
}

func TestBuildWhereRejectsInjectedField(t *testing.T) {
	table := widgetTable()
	pb := table.store.Dialect.NewParamBuilder()

	_, err := table.buildWhere(&query.Filter{
		Where: []query.Where{{Field: "(SELECT value FROM secrets)", Operator: "eq", Value: "hunter2"}},
	}, pb)
	if err == nil || !strings.Contains(err.Error(), "invalid column name") {
		t.Fatalf("expected the subquery field to be rejected, got %v", err)
	}
	if len(pb.Params()) != 0 {
		t.Fatalf("expected no params for a rejected clause, got %v", pb.Params())
	}
}

func TestBuildOrderRejectsInjectedField(t *testing.T) {
	_, err := buildOrder([]query.Order{{Field: "name; DROP TABLE widgets", Dir: "ASC"}})
	if err == nil || !strings.Contains(err.Error(), "invalid column name") {
		t.Fatalf("expected the order field to be rejected, got %v", err)
	}
}

func TestCreateRejectsInvalidColumn(t *testing.T) {
	table := widgetTable()

	_, err := table.Create(context.Background(), map[string]any{
		"name":                    "gear",
		"price) VALUES ('x'); --": 1,
	})
	if err == nil || !strings.Contains(err.Error(), "invalid column name") {
		t.Fatalf("expected the payload key to be rejected, got %v", err)
	}
}

func TestUpdateRejectsInvalidColumn(t *testing.T) {
	table := widgetTable()

	_, err := table.Update(context.Background(), "w1", map[string]any{
		"name = 'x', admin": "y",
	})
	if err == nil || !strings.Contains(err.Error(), "invalid column name") {
		t.Fatalf("expected the payload key to be rejected, got %v", err)
	}
}

func TestBuildWhereUnknownOperator(t *testing.T) {
	table := widgetTable()
	pb := table.store.Dialect.NewParamBuilder()

	_, err := table.buildWhere(&query.Filter{
		Where: []query.Where{{Field: "kind", Operator: "between", Value: 1}},
	}, pb)
	if err == nil || !strings.Contains(err.Error(), "between") {
		t.Fatalf("expected unknown operator error, got %v", err)
	}
}

func TestBuildClauseIn(t *testing.T) {
	pb := (&SQLiteDialect{}).NewParamBuilder()

	clause, err := buildClause(query.Where{Field: "id", Operator: "in", Value: []any{"a", "b"}}, pb)
	if err != nil {
		t.Fatalf("build clause failed: %v", err)
	}
	if clause != "id IN (?1, ?2)" {
		t.Fatalf("unexpected clause %q", clause)
	}

	empty, err := buildClause(query.Where{Field: "id", Operator: "in", Value: []any{}}, pb)
	if err != nil {
		t.Fatalf("build clause failed: %v", err)
	}
	if empty != "1=0" {
		t.Fatalf("expected empty in-list to match nothing, got %q", empty)
	}

	if _, err := buildClause(query.Where{Field: "id", Operator: "in", Value: "a"}, pb); err == nil {
		t.Fatal("expected non-slice in-value to be rejected")
	}
}

func TestBuildOrder(t *testing.T) {
	order, err := buildOrder([]query.Order{
		{Field: "name", Dir: "asc"},
		{Field: "created", Dir: "DESC"},
	})
	if err != nil {
		t.Fatalf("build order failed: %v", err)
	}
	if order != " ORDER BY name ASC, created DESC" {
		t.Fatalf("unexpected order %q", order)
	}

	if got, err := buildOrder(nil); err != nil || got != "" {
		t.Fatalf("expected empty order for nil, got %q (%v)", got, err)
	}
	if _, err := buildOrder("name"); err == nil {
		t.Fatal("expected unknown order-by shape to be rejected")
	}
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]any{"c": 1, "a": 2, "b": 3})
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
