package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrMissingReaderService)
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingReaderService)

	fx := newFixture(t)
	assert.NoError(t, fx.ports.Validate())
}

func TestPorts_OptionalHooks(t *testing.T) {
	fx := newFixture(t)
	fx.ports.Settings = nil
	fx.ports.Watch = nil

	assert.NoError(t, fx.ports.Validate())
}
