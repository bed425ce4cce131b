// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows && !darwin

package tts

import (
	"os/exec"
	"strconv"
)

// unixEngines are tried in order; espeak-ng is the maintained fork.
var unixEngines = []string{"espeak-ng", "espeak", "spd-say"}

func findEngine() string {
	for _, name := range unixEngines {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}

func speechCommandAvailable() bool {
	return findEngine() != ""
}

// speechCommand builds the speech invocation for Linux and the BSDs.
func speechCommand(text, voice string, rate int) (*exec.Cmd, error) {
	engine := findEngine()
	if engine == "" {
		return nil, ErrNotAvailable
	}

	var args []string
	switch engine {
	case "espeak-ng", "espeak":
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if rate > 0 {
			args = append(args, "-s", strconv.Itoa(rate))
		}
	case "spd-say":
		// spd-say blocks until done with -w so Kill works as Stop.
		args = append(args, "-w")
		if voice != "" {
			args = append(args, "-y", voice)
		}
	}
	args = append(args, text)

	return exec.Command(engine, args...), nil
}
