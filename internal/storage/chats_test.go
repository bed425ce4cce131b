// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tellama/internal/model"
	"tellama/internal/ollama"
)

func newTestStore(t *testing.T) *ChatStore {
	t.Helper()
	store, err := NewChatStore(t.TempDir(), 0)
	require.NoError(t, err)
	return store
}

func makeChat(t *testing.T, prompt string) *model.Chat {
	t.Helper()
	chat := model.NewChatWithModel("llama3.2:3b")
	chat.AddUserMessage(prompt)
	msg := chat.AddAssistantMessage()
	msg.AppendToken("a reply")
	msg.FinalizeStream(nil)
	return chat
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	chat := makeChat(t, "How do goroutines work?")
	chat.Settings = &ollama.Options{Temperature: 0.4, NumCtx: 4096}

	id, err := store.Save(chat)
	require.NoError(t, err)

	loaded, err := store.Load(id)
	require.NoError(t, err)

	require.Equal(t, chat.Title, loaded.Title)
	require.Equal(t, 2, loaded.MessageCount())
	require.Equal(t, "a reply", loaded.Messages[1].Content)
	require.NotNil(t, loaded.Settings)
	require.Equal(t, 0.4, loaded.Settings.Temperature)
}

func TestSavePersistsImages(t *testing.T) {
	store := newTestStore(t)
	chat := model.NewChat()
	chat.AddUserMessageWithImages("what is this", []model.Image{
		{Path: "/tmp/cat.png", Data: "aW1hZ2U="},
	})

	id, err := store.Save(chat)
	require.NoError(t, err)

	loaded, err := store.Load(id)
	require.NoError(t, err)
	images := loaded.Messages[0].Images
	require.Len(t, images, 1)
	require.Equal(t, "aW1hZ2U=", images[0].Data)
	require.Equal(t, "/tmp/cat.png", images[0].Path)
}

func TestSaveEmptyChatRemovesFile(t *testing.T) {
	store := newTestStore(t)
	chat := makeChat(t, "hello")

	id, _ := store.Save(chat)
	chat.ClearHistory()
	store.Save(chat)

	_, err := store.Load(id)
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("no-such-id")
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestListMostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	old := makeChat(t, "old chat")
	old.UpdatedAt = time.Now().Add(-time.Hour)
	saveRaw(t, store, old)

	recent := makeChat(t, "recent chat")
	_, err := store.Save(recent)
	require.NoError(t, err)

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.Equal(t, "recent chat", metas[0].Title, "most recent chat should list first")
}

// saveRaw writes the chat without touching its UpdatedAt.
func saveRaw(t *testing.T, store *ChatStore, chat *model.Chat) {
	t.Helper()
	data, err := json.MarshalIndent(chat, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.BaseDir, chat.ID+".json"), data, 0644))
}

func TestListSkipsCorruptedFiles(t *testing.T) {
	store := newTestStore(t)
	store.Save(makeChat(t, "good"))

	bad := filepath.Join(store.BaseDir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	store.Save(makeChat(t, "Explain Kubernetes networking"))
	store.Save(makeChat(t, "Write a haiku about rain"))

	results, err := store.Search("kubernetes")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Explain Kubernetes networking", results[0].Title)
}

func TestSearchMessages(t *testing.T) {
	store := newTestStore(t)

	chat := model.NewChat()
	chat.AddUserMessage("short prompt")
	msg := chat.AddAssistantMessage()
	msg.AppendToken("the answer mentions ZYZZYVA somewhere")
	msg.FinalizeStream(nil)
	store.Save(chat)

	store.Save(makeChat(t, "unrelated"))

	results, err := store.SearchMessages("zyzzyva")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Save(makeChat(t, "to be deleted"))

	require.NoError(t, store.Delete(id))
	require.ErrorIs(t, store.Delete(id), ErrChatNotFound)
}

func TestEnforceLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxChats = 3

	for i := 0; i < 5; i++ {
		chat := makeChat(t, "chat number")
		chat.UpdatedAt = time.Now().Add(-time.Duration(i+1) * time.Minute)
		saveRaw(t, store, chat)
	}

	// Saving one more triggers the limit.
	_, err := store.Save(makeChat(t, "newest"))
	require.NoError(t, err)

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, "newest", metas[0].Title, "newest chat must survive eviction")
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	store.Save(makeChat(t, "one"))
	store.Save(makeChat(t, "two"))

	require.NoError(t, store.Clear())

	metas, _ := store.List()
	require.Empty(t, metas)
}

func TestLoadAll(t *testing.T) {
	store := newTestStore(t)
	store.Save(makeChat(t, "first"))
	store.Save(makeChat(t, "second"))

	chats, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, chats, 2)
}
