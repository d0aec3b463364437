package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_Help(t *testing.T) {
	output, err := executeCmd(t, "--help")
	assert.NoError(t, err)
	assert.Contains(t, output, "stevedore")
	assert.Contains(t, output, "render")
}

func TestRootCmd_Structure(t *testing.T) {
	commands := rootCmd.Commands()
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "render")
	assert.Contains(t, names, "lint")
	assert.Contains(t, names, "doctor")
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "snapshots")
	assert.Contains(t, names, "update")
	assert.Contains(t, names, "completion")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := executeCmd(t, "no-such-command")
	assert.Error(t, err)
}
