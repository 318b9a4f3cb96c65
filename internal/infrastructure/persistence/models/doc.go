// Package models contains the GORM persistence models backing the delivery
// integration tables. They are kept separate from the domain entities so the
// domain layer stays free of ORM tags; mappers translate in both directions
// and repositories only ever touch these types.
//
// Files:
// - integration.go: Integration and sync-log models
// - inbox.go: Inbox item model for staged raw payloads
// - order.go: Persisted order model with its two upsert keys
// - worktime.go: Work-time record model keyed per physical order
package models
