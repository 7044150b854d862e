package db

import "gorm.io/gorm"

// RowLock returns the row locking suffix for SELECT statements inside a
// transaction. sqlite has no FOR UPDATE syntax; its single-writer model
// already serializes the transaction, so the suffix is empty there.
func RowLock(tx *gorm.DB) string {
	if tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}
