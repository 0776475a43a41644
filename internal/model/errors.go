package model

import "errors"

var (
	ErrInvalidArtifact = errors.New("invalid artifact")
	ErrShapeMismatch   = errors.New("feature shape mismatch")
	ErrFeatureNames    = errors.New("feature names do not match fitted names")
)
