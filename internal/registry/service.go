// Package registry onboards agents and issues their API keys.
package registry

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/models"
)

// ErrInvalidName is returned when an agent name is empty after trimming.
var ErrInvalidName = errors.New("agent name is required")

// AgentStore is the repository subset the registry needs.
type AgentStore interface {
	Create(ctx context.Context, a *models.Agent) error
}

type APIKeyStore interface {
	Create(ctx context.Context, k *models.APIKey) error
}

// Registration is the result of onboarding an agent. RawKey is shown exactly
// once; only its SHA-256 hash is stored.
type Registration struct {
	Agent  *models.Agent
	APIKey *models.APIKey
	RawKey string
}

type Service interface {
	RegisterAgent(ctx context.Context, name, description string) (*Registration, error)
}

type service struct {
	agents AgentStore
	keys   APIKeyStore
}

func NewService(agents AgentStore, keys APIKeyStore) *service {
	return &service{agents: agents, keys: keys}
}

var _ Service = (*service)(nil)

func (s *service) RegisterAgent(ctx context.Context, name, description string) (*Registration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	agent := &models.Agent{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, err
	}
	rawKey := "molt_" + hex.EncodeToString(rawBytes)
	hash := sha256.Sum256([]byte(rawKey))

	key := &models.APIKey{
		ID:        uuid.New(),
		AgentID:   agent.ID,
		KeyHash:   hex.EncodeToString(hash[:]),
		KeyPrefix: rawKey[:12],
		IsActive:  true,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &Registration{Agent: agent, APIKey: key, RawKey: rawKey}, nil
}
