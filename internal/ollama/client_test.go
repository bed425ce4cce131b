// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL: url,
		Timeout: 2 * time.Second,
	})
}

func TestCheckRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning returned error: %v", err)
	}
}

func TestCheckRunningNotReachable(t *testing.T) {
	// Port 1 is never listening.
	client := newTestClient("http://127.0.0.1:1")

	err := client.CheckRunning(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if !IsNotRunning(err) {
		t.Errorf("expected not-running error, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[
			{"name":"llama3.2:3b","size":2019393189,"details":{"parameter_size":"3.2B","quantization_level":"Q4_K_M"}},
			{"name":"llava:7b","size":4733363377}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "llama3.2:3b" {
		t.Errorf("model name = %q", models[0].Name)
	}
	if models[0].Details.ParameterSize != "3.2B" {
		t.Errorf("parameter size = %q", models[0].Details.ParameterSize)
	}
}

func TestShowModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ShowModel(context.Background(), "missing:latest")
	if err == nil {
		t.Fatal("expected error for missing model")
	}
	if !IsModelNotFound(err) {
		t.Errorf("expected model-not-found error, got %v", err)
	}
}

func TestShowModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/show" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"parameters":"stop <|end|>","details":{"family":"llama","parameter_size":"3.2B"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	info, err := client.ShowModel(context.Background(), "llama3.2:3b")
	if err != nil {
		t.Fatalf("ShowModel: %v", err)
	}
	if info.Details.Family != "llama" {
		t.Errorf("family = %q, want llama", info.Details.Family)
	}
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model":"llama3.2:3b",
			"message":{"role":"assistant","content":"Hello back"},
			"done":true,
			"eval_count":10,
			"eval_duration":1000000000
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Chat(context.Background(), "llama3.2:3b", []Message{NewUserMessage("Hello")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "Hello back" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if got := resp.TokensPerSecond(); got != 10 {
		t.Errorf("tokens per second = %f, want 10", got)
	}
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model requires more system memory"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), "big:70b", []Message{NewUserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClientError, got %T", err)
	}
	if ce.Message != "model requires more system memory" {
		t.Errorf("message = %q, want the server error body", ce.Message)
	}
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"Hi"},"done":false}` + "\n"))
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":" there"},"done":false}` + "\n"))
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"!"},"done":true,"eval_count":3,"eval_duration":500000000}` + "\n"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var chunks []StreamChunk
	err := client.ChatStream(context.Background(), "m", []Message{NewUserMessage("Hello")}, nil, func(chunk StreamChunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	var content string
	for _, c := range chunks {
		content += c.Content
	}
	if content != "Hi there!" {
		t.Errorf("accumulated = %q, want %q", content, "Hi there!")
	}

	last := chunks[len(chunks)-1]
	if !last.Done {
		t.Error("last chunk not marked done")
	}
	if last.CompletionTokens != 3 {
		t.Errorf("completion tokens = %d, want 3", last.CompletionTokens)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"Hi"},"done":false}` + "\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		// Hold the stream open until the client disconnects.
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- client.ChatStream(ctx, "m", []Message{NewUserMessage("Hello")}, nil, func(chunk StreamChunk) {})
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if !IsCancelled(err) {
			t.Errorf("expected cancellation error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ChatStream did not return after cancel")
	}
}

func TestChatStreamChan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"ok"},"done":true}` + "\n"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ch := client.ChatStreamChan(context.Background(), "m", []Message{NewUserMessage("Hello")}, nil)

	var got string
	for chunk := range ch {
		if chunk.Error != nil {
			t.Fatalf("chunk error: %v", chunk.Error)
		}
		got += chunk.Content
	}
	if got != "ok" {
		t.Errorf("content = %q, want %q", got, "ok")
	}
}

func TestChatSendsOptions(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.Write([]byte(`{"message":{"role":"assistant","content":"x"},"done":true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	opts := &Options{Temperature: 0.7, NumCtx: 4096}
	_, err := client.Chat(context.Background(), "m", []Message{NewUserMessage("hi")}, opts)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	body := string(gotBody)
	for _, want := range []string{`"temperature":0.7`, `"num_ctx":4096`} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %q: %s", want, body)
		}
	}
}
