package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/payalloc/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type rateRow struct {
	ID   uint   `gorm:"primaryKey"`
	Pair string `gorm:"size:7"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&rateRow{}))
	return db
}

func setupGlobalRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]any {
	m := make(map[string]any)
	for _, kv := range s.Attributes() {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingConfigFrom(t *testing.T) {
	assert.False(t, DBTracingConfigFrom(config.TelemetryConfig{DBTraceEnabled: true}).Enabled,
		"db tracing needs tracing itself to be enabled")

	cfg := DBTracingConfigFrom(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true, DBLogFullSQL: true})
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.LogFullSQL)
}

func TestDBTracingPlugin_DisabledRegistersNothing(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := setupTestDB(t)

	require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).RegisterOtelGorm(db))
	require.NoError(t, db.WithContext(context.Background()).Create(&rateRow{Pair: "USD/EUR"}).Error)

	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_RecordsStatementSpans(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&rateRow{Pair: "USD/EUR"}).Error)

	create := findSpan(sr.Ended(), "gorm.Create")
	require.NotNil(t, create)
	attrs := spanAttrs(create)
	assert.Equal(t, int64(1), attrs["db.rows_affected"])
	assert.Equal(t, "rate_rows", attrs["db.sql.table"])
	assert.NotContains(t, attrs, "db.slow_query")
	assert.NotEqual(t, codes.Error, create.Status().Code)
}

func TestDBTracingPlugin_MarksSlowQueries(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = time.Nanosecond
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	var rows []rateRow
	require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)

	query := findSpan(sr.Ended(), "gorm.Query")
	require.NotNil(t, query)
	assert.Equal(t, true, spanAttrs(query)["db.slow_query"])
	var names []string
	for _, e := range query.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "slow_query_warning")
}

func TestDBTracingPlugin_RecordNotFoundIsNotAnError(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	var row rateRow
	err := db.WithContext(context.Background()).First(&row, 42).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	query := findSpan(sr.Ended(), "gorm.Query")
	require.NotNil(t, query)
	assert.NotEqual(t, codes.Error, query.Status().Code)
}

func TestDBTracingPlugin_FailedStatementMarksSpan(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	err := db.WithContext(context.Background()).Exec("UPDATE missing_table SET x = 1").Error
	require.Error(t, err)

	raw := findSpan(sr.Ended(), "gorm.Raw")
	require.NotNil(t, raw)
	assert.Equal(t, codes.Error, raw.Status().Code)
}
