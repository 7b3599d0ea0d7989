// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts with ToDomain and
// FromDomain.
//
// - base.go: shared columns (BaseModel, AggregateModel, TenantAggregateModel)
// - payment.go: payments and their ordered allocation lines
// - ledger.go: read side of the ledger (partners, invoices, move lines)
// - reconciliation.go: reconciliation records
// - exchange_rate.go: daily currency rates
package models
