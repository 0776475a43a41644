// Package model loads the fitted scaler and regressor exported from the
// offline training run and evaluates them on named feature rows.
//
// Artifacts are immutable once loaded and safe for concurrent use.
package model
