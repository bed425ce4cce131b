// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tellama/internal/model"
	"tellama/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrChatNotFound is returned when a chat does not exist.
// Use errors.Is(err, ErrChatNotFound) to check for this error.
var ErrChatNotFound = &ChatError{Message: "chat not found"}

// ChatError represents a chat-storage error.
type ChatError struct {
	Message string
}

func (e *ChatError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore handles chat persistence.
type ChatStore struct {
	// BaseDir is the directory chat files live in.
	BaseDir string

	// MaxChats limits stored chats; oldest are removed first (0 = unlimited).
	MaxChats int
}

// NewChatStore creates a store rooted at the given directory.
func NewChatStore(baseDir string, maxChats int) (*ChatStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ChatStore{
		BaseDir:  baseDir,
		MaxChats: maxChats,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a chat and returns its ID. Empty chats are not written; a
// previously saved file for the same ID is removed instead, so a cleared
// chat does not linger on disk.
func (s *ChatStore) Save(chat *model.Chat) (string, error) {
	if chat.IsEmpty() {
		s.deleteFile(chat.ID)
		return chat.ID, nil
	}

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return "", err
	}

	if err := util.AtomicWriteFile(s.filePath(chat.ID), data, 0644); err != nil {
		return "", err
	}

	if s.MaxChats > 0 {
		s.enforceLimit()
	}

	return chat.ID, nil
}

// enforceLimit removes the oldest chats when over the limit.
func (s *ChatStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxChats {
		return
	}

	// List is most recent first, so the tail is oldest.
	for _, meta := range metas[s.MaxChats:] {
		s.Delete(meta.ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a chat by ID.
func (s *ChatStore) Load(id string) (*model.Chat, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	var chat model.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, err
	}

	return &chat, nil
}

// LoadByIndex loads a chat by its index in the list (0 = most recent).
func (s *ChatStore) LoadByIndex(index int) (*model.Chat, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrChatNotFound
	}
	return s.Load(metas[index].ID)
}

// LoadAll loads every stored chat, most recent first. Corrupted files are
// skipped.
func (s *ChatStore) LoadAll() ([]*model.Chat, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	chats := make([]*model.Chat, 0, len(metas))
	for _, meta := range metas {
		chat, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all saved chats, most recent first.
func (s *ChatStore) List() ([]model.ChatMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ChatMeta{}, nil
		}
		return nil, err
	}

	var metas []model.ChatMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		chat, err := s.Load(id)
		if err != nil {
			// Skip corrupted files.
			continue
		}

		metas = append(metas, chat.Meta())
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Search finds chats whose title or preview matches the query,
// case-insensitively.
func (s *ChatStore) Search(query string) ([]model.ChatMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []model.ChatMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// SearchMessages finds chats where any message contains the query string,
// case-insensitively. An empty query returns everything.
func (s *ChatStore) SearchMessages(query string) ([]model.ChatMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []model.ChatMeta
	for _, meta := range all {
		chat, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range chat.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a chat by ID.
func (s *ChatStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrChatNotFound
		}
		return err
	}
	return nil
}

// Clear removes all saved chats.
func (s *ChatStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *ChatStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

func (s *ChatStore) deleteFile(id string) {
	os.Remove(s.filePath(id))
}
