package models

import (
	"fmt"
	"maps"
	"time"
)

// Session is a persisted credential bag keyed by the HTTP session cookie.
type Session struct {
	id        string
	data      map[string]string
	createdAt time.Time
	updatedAt time.Time
}

// NewSession creates a session with the given id and a copy of data.
func NewSession(id string, data map[string]string) *Session {
	now := time.Now()
	s := &Session{id: id, createdAt: now, updatedAt: now}
	s.SetData(data)
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// Data returns a copy of the stored values.
func (s *Session) Data() map[string]string {
	return maps.Clone(s.data)
}

func (s *Session) SetData(data map[string]string) {
	if data == nil {
		data = map[string]string{}
	}
	s.data = maps.Clone(data)
}

func (s *Session) SetCreatedAt(t time.Time) { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time) { s.updatedAt = t }

func (s *Session) Validate() error {
	if s.id == "" {
		return fmt.Errorf("session id is required")
	}
	return nil
}
