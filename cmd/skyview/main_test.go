package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlpinetech/skyview"
	"github.com/owlpinetech/skyview/internal/observe"
)

type stubGeocoder struct{}

func (stubGeocoder) Name() string { return "stub" }

func (stubGeocoder) Reverse(context.Context, skyview.Direction) (skyview.Address, error) {
	return skyview.Address{Found: true, DisplayName: "Reykjavik, Iceland"}, nil
}

func newTestCLI(input string, asJSON bool) (*cli, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &cli{
		observer: observe.New(observe.DefaultSettings(), stubGeocoder{}),
		in:       bufio.NewScanner(strings.NewReader(input)),
		out:      &out,
		errOut:   &errOut,
		asJSON:   asJSON,
	}, &out, &errOut
}

func TestInteractiveSession(t *testing.T) {
	c, out, _ := newTestCLI("3\nabc\n8\n-21.9\n64.1\n", false)

	code := c.run(context.Background(), 0, "", "")
	require.Equal(t, exitOK, code)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Try again."), text)
	assert.Contains(t, text, `Resolution must be an integer, got "abc"`)
	assert.Contains(t, text, "Enter longitude: ")
	assert.Contains(t, text, "Enter latitude: ")
	assert.Contains(t, text, "Location: Reykjavik, Iceland")
	assert.Contains(t, text, "Solid angle (field of view): ")
	assert.Contains(t, text, "Cone angle (angular width): ")
	assert.Contains(t, text, "Surface area: ")
}

func TestInteractiveLatitudeRetry(t *testing.T) {
	c, out, _ := newTestCLI("4\n10\n95\n45\n", false)

	code := c.run(context.Background(), 0, "", "")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), `Invalid coordinate "95". Try again.`)
}

func TestFlagModeOutput(t *testing.T) {
	c, out, _ := newTestCLI("", false)

	code := c.run(context.Background(), 16, "2.35", "48.85")
	require.Equal(t, exitOK, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Location: Reykjavik, Iceland", lines[0])
	assert.NotContains(t, out.String(), "Enter")
}

func TestFlagModeInvalidResolution(t *testing.T) {
	for _, res := range []int{3, -2, 1000} {
		c, out, errOut := newTestCLI("", false)
		code := c.run(context.Background(), res, "0", "0")
		assert.Equal(t, exitBadInput, code, "resolution %d", res)
		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "invalid resolution")
	}
}

func TestFlagModeInvalidCoordinate(t *testing.T) {
	c, _, errOut := newTestCLI("", false)
	assert.Equal(t, exitBadInput, c.run(context.Background(), 4, "east", "0"))
	assert.Contains(t, errOut.String(), `invalid coordinate "east"`)

	c, _, _ = newTestCLI("", false)
	assert.Equal(t, exitBadInput, c.run(context.Background(), 4, "0", "-91"))
}

func TestInputExhausted(t *testing.T) {
	c, _, errOut := newTestCLI("7\n", false)
	assert.Equal(t, exitBadInput, c.run(context.Background(), 0, "", ""))
	assert.Contains(t, errOut.String(), "no more input")
}

func TestJSONOutput(t *testing.T) {
	c, out, _ := newTestCLI("", true)

	code := c.run(context.Background(), 4, "0", "0")
	require.Equal(t, exitOK, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, float64(4), report["resolution"])
	assert.Contains(t, report, "visibility")
	assert.Contains(t, report, "place")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"-bogus"}, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, exitBadInput, code)
}
