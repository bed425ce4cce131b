// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build darwin

package tts

import (
	"os/exec"
	"strconv"
)

// speechCommandAvailable reports whether say exists; it ships with macOS.
func speechCommandAvailable() bool {
	_, err := exec.LookPath("say")
	return err == nil
}

// speechCommand builds the say invocation for macOS.
func speechCommand(text, voice string, rate int) (*exec.Cmd, error) {
	if !speechCommandAvailable() {
		return nil, ErrNotAvailable
	}

	args := []string{}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if rate > 0 {
		args = append(args, "-r", strconv.Itoa(rate))
	}
	args = append(args, text)

	return exec.Command("say", args...), nil
}
