package storage

import (
	"slices"

	"github.com/serroba/acdocs/internal/model"
)

// newestFirst orders audit entries by CreatedAt descending. Entries with the
// same timestamp keep reverse insertion order.
func newestFirst(logs []model.AuditLog) []model.AuditLog {
	slices.Reverse(logs)
	slices.SortStableFunc(logs, func(a, b model.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return logs
}
