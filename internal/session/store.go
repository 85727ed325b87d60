package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_bullion/internal/domain"
)

// Store persists the cart of a browsing session under a single key.
// Implementations return an empty slice, not an error, for unknown sessions.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	Save(ctx context.Context, sessionID string, lines []domain.CartLine) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

var (
	ErrEmptySessionID = errors.New("session id is required")
	// ErrCartUnavailable means the persisted cart could not be read.
	ErrCartUnavailable = errors.New("cart storage unavailable")
)

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func encodeLines(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func decodeLines(data []byte) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return lines, nil
}
