package realtime

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestkey/server/internal/models"
)

func TestHub_PublishToRegisteredUser(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(10, logger)

	conn, err := hub.Register("user-1")
	require.NoError(t, err)

	err = hub.Publish("user-1", models.Event{Type: "inspection_requested", Title: "Inspection Requested"})
	assert.NoError(t, err)

	event := <-conn.Events()
	assert.Equal(t, "inspection_requested", event.Type)
}

func TestHub_PublishToOfflineUserIsDropped(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(10, logger)

	err := hub.Publish("nobody", models.Event{Type: "x"})
	assert.NoError(t, err)
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(10, logger)

	first, err := hub.Register("user-1")
	require.NoError(t, err)
	second, err := hub.Register("user-1")
	require.NoError(t, err)

	require.NoError(t, hub.Publish("user-1", models.Event{Type: "ping"}))

	assert.Equal(t, "ping", (<-first.Events()).Type)
	assert.Equal(t, "ping", (<-second.Events()).Type)
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(1, logger)

	conn, err := hub.Register("user-1")
	require.NoError(t, err)

	require.NoError(t, hub.Publish("user-1", models.Event{Type: "first"}))
	require.NoError(t, hub.Publish("user-1", models.Event{Type: "second"}))

	assert.Equal(t, "first", (<-conn.Events()).Type)
	select {
	case event, ok := <-conn.Events():
		assert.False(t, ok, "unexpected buffered event: %v", event)
	default:
		// second event was dropped, channel empty
	}
}

func TestHub_Unregister(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(10, logger)

	conn, err := hub.Register("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, hub.ConnectedUsers())

	hub.Unregister(conn)
	assert.Equal(t, 0, hub.ConnectedUsers())

	_, ok := <-conn.Events()
	assert.False(t, ok)
}

func TestHub_Close(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(10, logger)

	conn, err := hub.Register("user-1")
	require.NoError(t, err)

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	_, ok := <-conn.Events()
	assert.False(t, ok)

	_, err = hub.Register("user-2")
	assert.Equal(t, ErrHubClosed, err)
	assert.Equal(t, ErrHubClosed, hub.Publish("user-1", models.Event{}))
}
