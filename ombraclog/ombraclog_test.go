package ombraclog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackOnBadLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("not-a-level", &buf, "")

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "unrecognized log level")
}

func TestNewRespectsConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("error", &buf, "")

	log.Info().Msg("should be suppressed")
	log.Error().Msg("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be suppressed")
	assert.Contains(t, out, "should appear")
}
