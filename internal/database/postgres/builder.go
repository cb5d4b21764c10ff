package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
)

type condition struct {
	clause string
	args   []any
}

// builder constructs statements against a document table with automatic
// parameter numbering. Clauses carry "$%d" placeholders that are numbered
// when the statement is built.
type builder struct {
	table      string
	conditions []condition
}

func newBuilder(table string) *builder {
	return &builder{table: table}
}

// whereID adds an equality condition on the id column.
func (b *builder) whereID(id any) *builder {
	b.conditions = append(b.conditions, condition{
		clause: "id = $%d",
		args:   []any{fmt.Sprint(id)},
	})
	return b
}

// whereContains adds a jsonb containment condition for fields. Empty maps
// are ignored.
func (b *builder) whereContains(fields map[string]any) (*builder, error) {
	if len(fields) == 0 {
		return b, nil
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return b, fmt.Errorf("encode query: %w", err)
	}
	b.conditions = append(b.conditions, condition{
		clause: "doc @> $%d::jsonb",
		args:   []any{string(payload)},
	})
	return b, nil
}

func (b *builder) buildSelect() (string, []any) {
	where, args := b.buildWhere()
	return fmt.Sprintf("SELECT id, doc FROM %s%s ORDER BY id ASC", b.table, where), args
}

func (b *builder) buildInsert() string {
	return fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)", b.table)
}

func (b *builder) buildWhere() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(b.conditions))
	var args []any
	idx := 1

	for _, cond := range b.conditions {
		clause := cond.clause
		for _, arg := range cond.args {
			clause = strings.Replace(clause, "$%d", fmt.Sprintf("$%d", idx), 1)
			args = append(args, arg)
			idx++
		}
		clauses = append(clauses, clause)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
