// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tts

import (
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// ErrNotAvailable is returned when no speech command exists on this system.
var ErrNotAvailable = errors.New("no text-to-speech command available")

// ErrNothingToSpeak is returned for empty or whitespace-only text.
var ErrNothingToSpeak = errors.New("nothing to speak")

// =============================================================================
// SPEAKER
// =============================================================================

// Speaker runs the platform speech command. At most one utterance plays at a
// time; starting a new one stops the previous.
type Speaker struct {
	// Voice names the platform voice; empty uses the system default.
	Voice string
	// Rate is the speech rate in words per minute; zero uses the default.
	Rate int

	mu      sync.Mutex
	current *exec.Cmd
	done    chan struct{}
}

// NewSpeaker creates a speaker with the given voice and rate.
func NewSpeaker(voice string, rate int) *Speaker {
	return &Speaker{Voice: voice, Rate: rate}
}

// Available reports whether a speech command exists on this system.
func (s *Speaker) Available() bool {
	return speechCommandAvailable()
}

// Speak starts reading the text aloud, replacing any current utterance. It
// returns once playback has started; completion is asynchronous.
func (s *Speaker) Speak(text string) error {
	text = Sanitize(text)
	if text == "" {
		return ErrNothingToSpeak
	}

	cmd, err := speechCommand(text, s.Voice, s.Rate)
	if err != nil {
		return err
	}

	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return err
	}
	s.current = cmd
	done := make(chan struct{})
	s.done = done

	go func() {
		cmd.Wait()
		s.mu.Lock()
		if s.current == cmd {
			s.current = nil
		}
		s.mu.Unlock()
		close(done)
	}()

	return nil
}

// Stop aborts the current utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	cmd := s.current
	s.current = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

// IsSpeaking reports whether an utterance is currently playing.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Wait blocks until the current utterance finishes. Returns immediately if
// nothing is playing.
func (s *Speaker) Wait() {
	s.mu.Lock()
	done := s.done
	current := s.current
	s.mu.Unlock()

	if current == nil || done == nil {
		return
	}
	<-done
}

// =============================================================================
// TEXT SANITIZATION
// =============================================================================

// Sanitize strips markdown syntax that reads poorly aloud: code fences,
// inline code markers, emphasis, headings, and link targets.
func Sanitize(text string) string {
	var out strings.Builder
	inFence := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		// Drop heading markers and blockquote prefixes.
		trimmed = strings.TrimLeft(trimmed, "#> ")

		// Strip emphasis and inline code markers.
		trimmed = strings.NewReplacer("**", "", "__", "", "*", "", "_", " ", "`", "").Replace(trimmed)

		// Reduce [text](url) to text.
		trimmed = stripLinks(trimmed)

		if trimmed != "" {
			if out.Len() > 0 {
				out.WriteString(" ")
			}
			out.WriteString(trimmed)
		}
	}

	return strings.TrimSpace(out.String())
}

func stripLinks(s string) string {
	for {
		open := strings.Index(s, "[")
		if open < 0 {
			return s
		}
		closeIdx := strings.Index(s[open:], "](")
		if closeIdx < 0 {
			return s
		}
		closeIdx += open
		end := strings.Index(s[closeIdx:], ")")
		if end < 0 {
			return s
		}
		end += closeIdx
		s = s[:open] + s[open+1:closeIdx] + s[end+1:]
	}
}
