package database

import (
	"context"
	"fmt"
	"strings"
)

// Batch accumulates statements that must commit together. Variables are
// namespaced per statement ($id -> $s1_id) so statements can reuse names.
type Batch struct {
	statements []string
	vars       map[string]interface{}
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{vars: make(map[string]interface{})}
}

// Add appends a statement
func (b *Batch) Add(query string, vars map[string]interface{}) {
	prefix := fmt.Sprintf("s%d_", len(b.statements)+1)
	for name, value := range vars {
		query = strings.ReplaceAll(query, "$"+name, "$"+prefix+name)
		b.vars[prefix+name] = value
	}
	b.statements = append(b.statements, strings.TrimSuffix(strings.TrimSpace(query), ";"))
}

// Len returns the number of statements
func (b *Batch) Len() int {
	return len(b.statements)
}

// Build returns the transaction block and merged variables
func (b *Batch) Build() (string, map[string]interface{}) {
	if len(b.statements) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range b.statements {
		sb.WriteString(stmt)
		sb.WriteString(";\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")
	return sb.String(), b.vars
}

// Execute runs every statement in one transaction
func (b *Batch) Execute(ctx context.Context, db Database) error {
	query, vars := b.Build()
	if query == "" {
		return nil
	}
	return db.Execute(ctx, query, vars)
}
