package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/xmppcore-go/internal/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/delivery"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	routingtablepkg "github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// --- Mocks ---

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Process(ctx context.Context, packet stanza.Packet) error {
	args := m.Called(ctx, packet)
	return args.Error(0)
}

type recordingRoute struct {
	mu      sync.Mutex
	packets []stanza.Packet
}

func (r *recordingRoute) Process(ctx context.Context, packet stanza.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, packet)
	return nil
}

func testIQ(to string) *stanza.IQ {
	address := jid.MustParse(to)
	return &stanza.IQ{ID: "iq-1", Type: stanza.TypeResult, To: &address}
}

func TestPacketGateway_NoTransportHandler(t *testing.T) {
	gateway := NewPacketGateway(zerolog.Nop())

	err := gateway.Deliver(context.Background(), testIQ("alice@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery.ErrNoTransportHandler)

	var unavailable *delivery.DeliveryUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "iq-1", unavailable.PacketID)
}

func TestPacketGateway_NilPacket(t *testing.T) {
	gateway := NewPacketGateway(zerolog.Nop())
	gateway.SetTransportHandler(&mockTransport{})

	assert.ErrorIs(t, gateway.Deliver(context.Background(), nil), delivery.ErrNilPacket)

	var iq *stanza.IQ
	assert.ErrorIs(t, gateway.Deliver(context.Background(), iq), delivery.ErrNilPacket)
}

func TestPacketGateway_ResolvesHandlerAtCallTime(t *testing.T) {
	gateway := NewPacketGateway(zerolog.Nop())
	ctx := context.Background()
	packet := testIQ("alice@example.com")

	first := &mockTransport{}
	first.On("Process", ctx, packet).Return(nil).Once()
	second := &mockTransport{}
	second.On("Process", ctx, packet).Return(nil).Once()

	gateway.SetTransportHandler(first)
	require.NoError(t, gateway.Deliver(ctx, packet))

	gateway.SetTransportHandler(second)
	require.NoError(t, gateway.Deliver(ctx, packet))

	gateway.ClearTransportHandler()
	assert.False(t, gateway.HasTransportHandler())
	assert.ErrorIs(t, gateway.Deliver(ctx, packet), delivery.ErrNoTransportHandler)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestPacketGateway_SetNilClears(t *testing.T) {
	gateway := NewPacketGateway(zerolog.Nop())
	gateway.SetTransportHandler(&mockTransport{})
	require.True(t, gateway.HasTransportHandler())

	gateway.SetTransportHandler(nil)
	assert.False(t, gateway.HasTransportHandler())
}

func TestPacketGateway_PropagatesHandlerError(t *testing.T) {
	gateway := NewPacketGateway(zerolog.Nop())
	ctx := context.Background()
	packet := testIQ("alice@example.com")
	boom := errors.New("connection reset")

	transport := &mockTransport{}
	transport.On("Process", ctx, packet).Return(boom)
	gateway.SetTransportHandler(transport)

	err := gateway.Deliver(ctx, packet)
	assert.ErrorIs(t, err, boom)
}

func TestRouteTransport_DeliversWithBareFallback(t *testing.T) {
	table := routingtable.NewInMemoryRoutingTable()
	defer table.Close()

	bare := &recordingRoute{}
	_, err := table.AddRoute(jid.MustParse("alice@example.com"), bare)
	require.NoError(t, err)

	gateway := NewPacketGateway(zerolog.Nop())
	gateway.SetTransportHandler(NewRouteTransport(table))

	require.NoError(t, gateway.Deliver(context.Background(), testIQ("alice@example.com/phone")))
	assert.Len(t, bare.packets, 1)

	err = gateway.Deliver(context.Background(), testIQ("bob@example.com/home"))
	assert.ErrorIs(t, err, routingtablepkg.ErrNoRouteFound)
}

func TestRouteTransport_NoRecipient(t *testing.T) {
	transport := NewRouteTransport(routingtable.NewInMemoryRoutingTable())
	err := transport.Process(context.Background(), &stanza.IQ{ID: "x"})
	assert.Error(t, err)
}
