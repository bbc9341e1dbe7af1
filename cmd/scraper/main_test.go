package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs_MissingURL(t *testing.T) {
	err := rootCmd.Args(rootCmd, nil)
	require.ErrorIs(t, err, errMissingURL)
	assert.Equal(t, "Please provide a URL as a command-line argument.", exitMessage(err))
}

func TestArgs_TooMany(t *testing.T) {
	err := rootCmd.Args(rootCmd, []string{"a", "b"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errMissingURL)
}

func TestExitMessage_PassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, "boom", exitMessage(errors.New("boom")))
}
