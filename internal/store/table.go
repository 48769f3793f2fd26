package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"groundwork/internal/query"
	"groundwork/internal/source"
)

// identPattern is the only shape a column name may take before it is
// interpolated into SQL. Filter fields, order-by fields, and payload
// keys all arrive from the caller (workbook headers included), so
// anything else is rejected, never quoted through.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid column name %q", name)
	}
	return nil
}

// TableStorage implements the source storage contract for one table.
// Filters are expected to be *query.Filter (or nil); order-by is
// expected to be []query.Order. Anything else is rejected so a wiring
// mistake fails loudly instead of silently matching everything.
type TableStorage struct {
	store *Store
	table string
}

func NewTableStorage(s *Store, table string) *TableStorage {
	return &TableStorage{store: s, table: table}
}

var _ source.Storage = (*TableStorage)(nil)

func (t *TableStorage) FindMany(ctx context.Context, filter, orderBy any, take, skip *int) ([]map[string]any, error) {
	pb := t.store.Dialect.NewParamBuilder()
	where, err := t.buildWhere(filter, pb)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(orderBy)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT * FROM %s%s%s", t.table, where, order)
	if take != nil {
		sql += fmt.Sprintf(" LIMIT %s", pb.Add(*take))
	}
	if skip != nil {
		sql += fmt.Sprintf(" OFFSET %s", pb.Add(*skip))
	}
	return QueryRows(ctx, t.store.DB, sql, pb.Params()...)
}

func (t *TableStorage) FindUnique(ctx context.Context, id string) (map[string]any, error) {
	pb := t.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT * FROM %s WHERE id = %s LIMIT 1", t.table, pb.Add(id))
	return QueryRow(ctx, t.store.DB, sql, pb.Params()...)
}

func (t *TableStorage) FindFirst(ctx context.Context, filter any) (map[string]any, error) {
	pb := t.store.Dialect.NewParamBuilder()
	where, err := t.buildWhere(filter, pb)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s%s LIMIT 1", t.table, where)
	return QueryRow(ctx, t.store.DB, sql, pb.Params()...)
}

func (t *TableStorage) Count(ctx context.Context, filter any) (int, error) {
	pb := t.store.Dialect.NewParamBuilder()
	where, err := t.buildWhere(filter, pb)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s%s", t.table, where)
	row, err := QueryRow(ctx, t.store.DB, sql, pb.Params()...)
	if err != nil {
		return 0, err
	}
	switch n := row["count"].(type) {
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", row["count"])
	}
}

func (t *TableStorage) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	record := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		record[k] = v
	}
	id, _ := record["id"].(string)
	if id == "" {
		id = uuid.New().String()
		record["id"] = id
	}

	columns := sortedKeys(record)
	pb := t.store.Dialect.NewParamBuilder()
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		if err := validIdent(col); err != nil {
			return nil, err
		}
		placeholders[i] = pb.Add(record[col])
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := Exec(ctx, t.store.DB, sql, pb.Params()...); err != nil {
		return nil, t.store.Dialect.MapError(err)
	}
	return t.FindUnique(ctx, id)
}

func (t *TableStorage) Update(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
	columns := sortedKeys(payload)
	if len(columns) == 0 {
		return t.FindUnique(ctx, id)
	}

	pb := t.store.Dialect.NewParamBuilder()
	sets := make([]string, len(columns))
	for i, col := range columns {
		if err := validIdent(col); err != nil {
			return nil, err
		}
		sets[i] = fmt.Sprintf("%s = %s", col, pb.Add(payload[col]))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		t.table, strings.Join(sets, ", "), pb.Add(id))
	affected, err := Exec(ctx, t.store.DB, sql, pb.Params()...)
	if err != nil {
		return nil, t.store.Dialect.MapError(err)
	}
	if affected == 0 {
		return nil, source.ErrNotFound
	}
	return t.FindUnique(ctx, id)
}

func (t *TableStorage) Delete(ctx context.Context, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pb := t.store.Dialect.NewParamBuilder()
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = pb.Add(id)
	}
	in := strings.Join(placeholders, ", ")

	removed, err := QueryRows(ctx, t.store.DB,
		fmt.Sprintf("SELECT * FROM %s WHERE id IN (%s)", t.table, in), pb.Params()...)
	if err != nil {
		return nil, err
	}
	if _, err := Exec(ctx, t.store.DB,
		fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", t.table, in), pb.Params()...); err != nil {
		return nil, err
	}
	return removed, nil
}

func (t *TableStorage) buildWhere(filter any, pb ParamBuilder) (string, error) {
	if filter == nil {
		return "", nil
	}
	f, ok := filter.(*query.Filter)
	if !ok {
		return "", fmt.Errorf("table %s: unsupported filter type %T", t.table, filter)
	}
	if f == nil {
		return "", nil
	}

	var clauses []string
	for _, w := range f.Where {
		clause, err := buildClause(w, pb)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	if len(f.Or) > 0 {
		var group []string
		for _, w := range f.Or {
			clause, err := buildClause(w, pb)
			if err != nil {
				return "", err
			}
			group = append(group, clause)
		}
		clauses = append(clauses, "("+strings.Join(group, " OR ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

func buildClause(w query.Where, pb ParamBuilder) (string, error) {
	if err := validIdent(w.Field); err != nil {
		return "", err
	}
	switch w.Operator {
	case "eq", "":
		return fmt.Sprintf("%s = %s", w.Field, pb.Add(w.Value)), nil
	case "neq":
		return fmt.Sprintf("%s != %s", w.Field, pb.Add(w.Value)), nil
	case "gt":
		return fmt.Sprintf("%s > %s", w.Field, pb.Add(w.Value)), nil
	case "gte":
		return fmt.Sprintf("%s >= %s", w.Field, pb.Add(w.Value)), nil
	case "lt":
		return fmt.Sprintf("%s < %s", w.Field, pb.Add(w.Value)), nil
	case "lte":
		return fmt.Sprintf("%s <= %s", w.Field, pb.Add(w.Value)), nil
	case "like":
		return fmt.Sprintf("%s LIKE %s", w.Field, pb.Add(w.Value)), nil
	case "contains":
		ph := pb.Add(fmt.Sprintf("%%%v%%", w.Value))
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", w.Field, ph), nil
	case "in":
		values, ok := w.Value.([]any)
		if !ok {
			return "", fmt.Errorf("in operator on %s requires a slice", w.Field)
		}
		if len(values) == 0 {
			return "1=0", nil
		}
		phs := make([]string, len(values))
		for i, v := range values {
			phs[i] = pb.Add(v)
		}
		return fmt.Sprintf("%s IN (%s)", w.Field, strings.Join(phs, ", ")), nil
	default:
		return "", fmt.Errorf("unknown filter operator %q on %s", w.Operator, w.Field)
	}
}

func buildOrder(orderBy any) (string, error) {
	if orderBy == nil {
		return "", nil
	}
	orders, ok := orderBy.([]query.Order)
	if !ok {
		return "", fmt.Errorf("unsupported order-by type %T", orderBy)
	}
	if len(orders) == 0 {
		return "", nil
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		if err := validIdent(o.Field); err != nil {
			return "", err
		}
		dir := strings.ToUpper(o.Dir)
		if dir != "DESC" {
			dir = "ASC"
		}
		parts[i] = fmt.Sprintf("%s %s", o.Field, dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
