package main

import (
	"errors"
	"testing"

	"github.com/kovo-tts/kovo/internal/audio"
	"github.com/kovo-tts/kovo/internal/config"
	"github.com/kovo-tts/kovo/internal/synth"
	"github.com/kovo-tts/kovo/internal/voice"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config parse", &config.ParseError{Path: "x.yml", Err: errors.New("bad yaml")}, exitConfig},
		{"blend syntax", &voice.SyntaxError{Spec: "a()", Reason: "empty weight"}, exitBlend},
		{"engine down", &synth.Error{Type: "connection", Message: "refused"}, exitSynthesis},
		{"engine timeout", &synth.Error{Type: "timeout", Message: "deadline"}, exitSynthesis},
		{"bad request", &synth.Error{Type: "request", Message: "empty text"}, exitGeneral},
		{"export failure", &audio.ExportError{Path: "/nope/x.wav", Cause: errors.New("denied")}, exitExport},
		{"anything else", errors.New("boom"), exitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCliSource_OnlyChangedFlags(t *testing.T) {
	cmd := rootCmd
	// Parse a subset so only those flags count as changed.
	if err := cmd.Flags().Parse([]string{"--voice", "am_adam", "--speed", "1.5"}); err != nil {
		t.Fatal(err)
	}
	src := cliSource(cmd)
	if src.Voice == nil || *src.Voice != "am_adam" {
		t.Errorf("voice flag not captured: %+v", src.Voice)
	}
	if src.Speed == nil || *src.Speed != 1.5 {
		t.Errorf("speed flag not captured")
	}
	if src.Format != nil || src.ServerURL != nil || src.Quiet != nil {
		t.Errorf("untouched flags must not produce source fields: %+v", src)
	}
}
