package iqhandler

import (
	"context"
	"encoding/xml"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// recordingGateway captures delivered packets
type recordingGateway struct {
	mu      sync.Mutex
	packets []stanza.Packet
}

func (g *recordingGateway) Deliver(ctx context.Context, packet stanza.Packet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.packets = append(g.packets, packet)
	return nil
}

func (g *recordingGateway) single(t *testing.T) *stanza.IQ {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.Len(t, g.packets, 1)
	iq, ok := g.packets[0].(*stanza.IQ)
	require.True(t, ok)
	return iq
}

var (
	serverAddress = jid.MustParse("example.com")
	clientAddress = jid.MustParse("juliet@example.com/balcony")
)

func request(typ stanza.IQType, namespace string) *stanza.IQ {
	from := clientAddress
	iq := stanza.NewIQ(typ, nil, &stanza.Element{Name: "query", Namespace: namespace})
	iq.From = &from
	return iq
}

func TestPingHandler(t *testing.T) {
	gateway := &recordingGateway{}
	handler := NewPingHandler(gateway, serverAddress)
	assert.Equal(t, iqhandler.NamespacePing, handler.Namespace())

	iq := request(stanza.TypeGet, iqhandler.NamespacePing)
	require.NoError(t, handler.HandleIQ(context.Background(), iq))

	reply := gateway.single(t)
	assert.Equal(t, stanza.TypeResult, reply.Type)
	assert.Equal(t, iq.ID, reply.ID)
	require.NotNil(t, reply.To)
	assert.Equal(t, clientAddress, *reply.To)
	require.NotNil(t, reply.From, "reply to a server-addressed ping carries the server address")
	assert.Equal(t, serverAddress, *reply.From)
	assert.Nil(t, reply.Child)
}

func TestPingHandler_RejectsSet(t *testing.T) {
	gateway := &recordingGateway{}
	handler := NewPingHandler(gateway, serverAddress)

	require.NoError(t, handler.HandleIQ(context.Background(), request(stanza.TypeSet, iqhandler.NamespacePing)))

	reply := gateway.single(t)
	assert.Equal(t, stanza.TypeError, reply.Type)
	require.NotNil(t, reply.Error)
	assert.Equal(t, stanza.ConditionBadRequest, reply.Error.Condition)
}

func TestPingHandler_NoSenderNoReply(t *testing.T) {
	gateway := &recordingGateway{}
	handler := NewPingHandler(gateway, serverAddress)

	iq := request(stanza.TypeGet, iqhandler.NamespacePing)
	iq.From = nil
	require.NoError(t, handler.HandleIQ(context.Background(), iq))
	assert.Empty(t, gateway.packets)
}

func TestVersionHandler(t *testing.T) {
	gateway := &recordingGateway{}
	handler := NewVersionHandler(gateway, serverAddress, "xmppcore", "1.2.3")

	require.NoError(t, handler.HandleIQ(context.Background(), request(stanza.TypeGet, iqhandler.NamespaceVersion)))

	reply := gateway.single(t)
	require.NotNil(t, reply.Child)
	assert.Equal(t, iqhandler.NamespaceVersion, reply.Child.Namespace)

	var query struct {
		Name    string `xml:"name"`
		Version string `xml:"version"`
		OS      string `xml:"os"`
	}
	require.NoError(t, xml.Unmarshal(wrap(reply.Child.Payload), &query))
	assert.Equal(t, "xmppcore", query.Name)
	assert.Equal(t, "1.2.3", query.Version)
	assert.NotEmpty(t, query.OS)
}

func TestTimeHandler(t *testing.T) {
	gateway := &recordingGateway{}
	zone := time.FixedZone("test", -5*3600)
	fixed := time.Date(2024, 3, 1, 10, 30, 0, 0, zone)
	handler := NewTimeHandler(gateway, serverAddress, func() time.Time { return fixed })

	require.NoError(t, handler.HandleIQ(context.Background(), request(stanza.TypeGet, iqhandler.NamespaceTime)))

	reply := gateway.single(t)
	require.NotNil(t, reply.Child)
	assert.Equal(t, "time", reply.Child.Name)

	var payload struct {
		TZO string `xml:"tzo"`
		UTC string `xml:"utc"`
	}
	require.NoError(t, xml.Unmarshal(wrap(reply.Child.Payload), &payload))
	assert.Equal(t, "-05:00", payload.TZO)
	assert.Equal(t, "2024-03-01T15:30:00Z", payload.UTC)
}

func TestDiscoInfoHandler_ListsRegisteredNamespaces(t *testing.T) {
	gateway := &recordingGateway{}
	registry := newRegistry(t)
	disco := NewDiscoInfoHandler(gateway, serverAddress, registry, "xmppcore")

	require.NoError(t, registry.AddHandler(NewPingHandler(gateway, serverAddress)))
	require.NoError(t, registry.AddHandler(disco))
	require.NoError(t, registry.AddHandler(&stubHandler{namespace: iqhandler.NamespacePing}))

	require.NoError(t, disco.HandleIQ(context.Background(), request(stanza.TypeGet, iqhandler.NamespaceDiscoInfo)))

	reply := gateway.single(t)
	require.NotNil(t, reply.Child)

	var query struct {
		Identity struct {
			Category string `xml:"category,attr"`
			Type     string `xml:"type,attr"`
			Name     string `xml:"name,attr"`
		} `xml:"identity"`
		Features []struct {
			Var string `xml:"var,attr"`
		} `xml:"feature"`
	}
	require.NoError(t, xml.Unmarshal(wrap(reply.Child.Payload), &query))
	assert.Equal(t, "server", query.Identity.Category)
	assert.Equal(t, "xmppcore", query.Identity.Name)

	var features []string
	for _, f := range query.Features {
		features = append(features, f.Var)
	}
	assert.Equal(t, []string{iqhandler.NamespacePing, iqhandler.NamespaceDiscoInfo}, features)
}

// wrap puts a payload under a single root so it can be unmarshaled
func wrap(payload []byte) []byte {
	return append(append([]byte("<query>"), payload...), []byte("</query>")...)
}
