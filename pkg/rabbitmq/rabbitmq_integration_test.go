//go:build integration

package rabbitmq

import (
	"context"
	"fmt"
	"testing"
	"time"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbit(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start rabbitmq container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestClient_PublishAndConsume(t *testing.T) {
	client, err := NewClient(Config{URL: startRabbit(t), Exchange: "storefront-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	received := make(chan amqp.Delivery, 1)
	require.NoError(t, client.ConsumeEvents("test.cart", "cart.#", func(msg amqp.Delivery) error {
		received <- msg
		return nil
	}))

	require.NoError(t, client.Send(context.Background(), "product.deleted", []byte("9"), []byte(`{"skip":true}`)))
	require.NoError(t, client.Send(context.Background(), "cart.item.added", []byte("7"), []byte(`{"ok":true}`)))

	select {
	case msg := <-received:
		assert.Equal(t, "cart.item.added", msg.RoutingKey)
		assert.Equal(t, "7", msg.CorrelationId)
		assert.Equal(t, "application/json", msg.ContentType)
		assert.JSONEq(t, `{"ok":true}`, string(msg.Body))
	case <-time.After(10 * time.Second):
		t.Fatal("no message consumed")
	}
}
