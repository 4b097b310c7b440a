// Package remote defines the endpoint the sync worker pulls from and pushes
// to: one JSON ledger document per owner with a monotonic version.
package remote

import (
	"context"
	"errors"
	"time"
)

// Document is the stored ledger of one owner.
type Document struct {
	// Data is the serialized ledger snapshot. Empty when nothing was saved yet.
	Data        string    `json:"data"`
	Version     int64     `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
}

var (
	// ErrVersionConflict is returned by Save when the stored version is not the
	// one the caller last observed.
	ErrVersionConflict = errors.New("remote version conflict")
	// ErrUnavailable wraps transport failures and open breakers.
	ErrUnavailable = errors.New("remote unavailable")
)

// Endpoint is the remote persistence store.
type Endpoint interface {
	// Fetch returns the owner's document, or nil when there is none.
	Fetch(ctx context.Context, owner string) (*Document, error)
	// Save stores doc.Data. doc.Version is the version the caller last saw;
	// on success the stored version becomes doc.Version+1.
	Save(ctx context.Context, owner string, doc Document) error
}
