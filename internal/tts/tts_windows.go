// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package tts

import (
	"os/exec"
	"strconv"
	"strings"
)

func speechCommandAvailable() bool {
	_, err := exec.LookPath("powershell")
	return err == nil
}

// speechCommand builds a SAPI invocation via PowerShell. The text is passed
// as a single-quoted PowerShell string with quotes doubled, so shell
// metacharacters stay inert.
func speechCommand(text, voice string, rate int) (*exec.Cmd, error) {
	if !speechCommandAvailable() {
		return nil, ErrNotAvailable
	}

	var script strings.Builder
	script.WriteString("Add-Type -AssemblyName System.Speech; ")
	script.WriteString("$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ")
	if voice != "" {
		script.WriteString("$s.SelectVoice('" + escapeSingleQuotes(voice) + "'); ")
	}
	if rate > 0 {
		// SAPI rate is -10..10; map words per minute (~80..450) onto it.
		script.WriteString("$s.Rate = " + strconv.Itoa(mapRate(rate)) + "; ")
	}
	script.WriteString("$s.Speak('" + escapeSingleQuotes(text) + "');")

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script.String()), nil
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// mapRate converts words per minute to the SAPI -10..10 scale, with 180 wpm
// as the neutral midpoint.
func mapRate(wpm int) int {
	r := (wpm - 180) / 20
	if r < -10 {
		r = -10
	}
	if r > 10 {
		r = 10
	}
	return r
}
