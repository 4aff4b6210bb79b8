package mongodb

import (
	"context"
	"testing"

	"github.com/stemyke/node-backend-sub000/data/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerRejectsEmptyConfig(t *testing.T) {
	_, err := NewManager(context.Background(), nil)
	require.Error(t, err)

	_, err = NewManager(context.Background(), &config.MongoDB{})
	require.Error(t, err)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.Nil(t, m.Client())
	assert.ErrorIs(t, m.Health(context.Background()), ErrNoClient)
	assert.NoError(t, m.Close(context.Background()))
}
