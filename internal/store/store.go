// Package store persists trained persona models to SQLite.
package store

import (
	"errors"
	"time"
)

// ErrCorruptModel means a persisted artifact is structurally invalid:
// missing components or misaligned vector/reply counts. Fatal for
// starting a chat session with that persona.
var ErrCorruptModel = errors.New("model artifact is corrupt")

// ModelInfo summarizes a stored persona model.
type ModelInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Order      int       `json:"markov_order"`
	Utterances int       `json:"utterances"`
	Terms      int       `json:"terms"`
	Prefixes   int       `json:"prefixes"`
	CreatedAt  time.Time `json:"created_at"`
}
