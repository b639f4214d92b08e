// Package models contains GORM persistence models that map to database tables.
// Each model converts with ToDomain/FromDomain.
//
// Time columns carry no explicit type: GORM picks timestamptz on PostgreSQL and
// datetime on SQLite. Hashed JSON is stored as text, never jsonb.
package models
