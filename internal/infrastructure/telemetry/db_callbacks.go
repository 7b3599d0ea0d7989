package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type queryStartKey struct{}

// markQueryStart stores the statement start time on the statement context
func markQueryStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

// queryElapsed returns the time since markQueryStart, or false if it never ran
func queryElapsed(db *gorm.DB) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(queryStartKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// registerAroundCallbacks hooks before and after into every gorm processor.
// after receives the SQL verb of the processor, or "" for row/raw statements
// whose verb has to be read from the SQL text. A non-empty endHook names the
// prefix of callbacks the after hook must precede, e.g. "otel:after:" so span
// annotations land before otelgorm ends the span.
func registerAroundCallbacks(db *gorm.DB, prefix, endHook string, before func(*gorm.DB), after func(op string) func(*gorm.DB)) error {
	cb := db.Callback()

	afterCreate := cb.Create().After("gorm:create")
	afterQuery := cb.Query().After("gorm:query")
	afterUpdate := cb.Update().After("gorm:update")
	afterDelete := cb.Delete().After("gorm:delete")
	afterRow := cb.Row().After("gorm:row")
	afterRaw := cb.Raw().After("gorm:raw")
	if endHook != "" {
		afterCreate = afterCreate.Before(endHook + "create")
		afterQuery = afterQuery.Before(endHook + "select")
		afterUpdate = afterUpdate.Before(endHook + "update")
		afterDelete = afterDelete.Before(endHook + "delete")
		afterRow = afterRow.Before(endHook + "row")
		afterRaw = afterRaw.Before(endHook + "raw")
	}

	return errors.Join(
		cb.Create().Before("gorm:create").Register(prefix+":before_create", before),
		cb.Query().Before("gorm:query").Register(prefix+":before_query", before),
		cb.Update().Before("gorm:update").Register(prefix+":before_update", before),
		cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", before),
		cb.Row().Before("gorm:row").Register(prefix+":before_row", before),
		cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", before),

		afterCreate.Register(prefix+":after_create", after("INSERT")),
		afterQuery.Register(prefix+":after_query", after("SELECT")),
		afterUpdate.Register(prefix+":after_update", after("UPDATE")),
		afterDelete.Register(prefix+":after_delete", after("DELETE")),
		afterRow.Register(prefix+":after_row", after("")),
		afterRaw.Register(prefix+":after_raw", after("")),
	)
}

// detectOperationType reads the SQL verb from a raw statement.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
