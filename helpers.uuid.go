package main

import (
	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil) // ensure IDsHandler implements UIDHandler.

// UIDHandler is an interface for getting a prefixed unique id.
// Books use storage assigned integers so this only serves requests.
type UIDHandler interface {
	Generate(prefix string) string
}

// IDsHandler implements the UIDHandler interface.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a random unique identifier.
func (idh *IDsHandler) Generate(prefix string) string {
	id, err := uuid.NewV4()
	if err != nil {
		return prefix + ":" + uuid.Nil.String()
	}
	return prefix + ":" + id.String()
}
