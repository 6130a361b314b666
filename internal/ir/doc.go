// Package ir provides the foundational types shared by every mapql package.
//
// This package contains value and schema definitions only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - EntityType descriptors are immutable once a schema registry is built
//   - Instance identity is (type name, id value), never pointer identity alone
//   - All JSON tags use snake_case
package ir
