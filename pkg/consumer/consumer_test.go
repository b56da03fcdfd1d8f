package consumer_test

import (
	"testing"
	"time"

	"github.com/fieldmesh/loraota/pkg/consumer"
	"github.com/fieldmesh/loraota/pkg/ota"
	"github.com/fieldmesh/loraota/pkg/radio"
	"github.com/fieldmesh/loraota/pkg/radio/virtual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemory records every accepted write for assertions and can be
// configured to reject specific offsets.
type fakeMemory struct {
	writes  map[uint32][]byte
	reject  map[uint32]bool
	calls   int
	lastVUT uint32
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{writes: make(map[uint32][]byte), reject: make(map[uint32]bool)}
}

func (m *fakeMemory) Write(validUpTo uint32, offset uint32, data []byte) bool {
	m.calls++
	m.lastVUT = validUpTo
	if m.reject[offset] {
		return false
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.writes[offset] = cp
	return true
}

func newHarness(t *testing.T) (*consumer.Consumer, *fakeMemory, *radio.Link) {
	t.Helper()
	nodePHY, gatewayPHY := virtual.NewPair(0)
	mem := newFakeMemory()
	c := consumer.New(radio.NewLink(nodePHY, 2), mem)
	gatewayLink := radio.NewLink(gatewayPHY, 1)
	return c, mem, gatewayLink
}

func TestHandleInitAcks(t *testing.T) {
	c, _, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 2}))
	assert.True(t, c.Active())

	frame, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	pkt, err := ota.Unmarshal(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, ota.KindInitAck, pkt.Kind)
}

func TestHandleDataWritesAndAdvancesWatermark(t *testing.T) {
	c, mem, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 2}))
	_, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{1, 2, 3, 4}}))
	frame, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	pkt, err := ota.Unmarshal(frame.Payload)
	require.NoError(t, err)
	require.Equal(t, ota.KindStatus, pkt.Kind)
	assert.EqualValues(t, 1, pkt.Status.ValidUpToIndex)
	assert.Equal(t, []byte{1, 2, 3, 4}, mem.writes[0])

	require.NoError(t, c.HandleData(1, ota.Data{Index: 1, Bytes: []byte{5, 6, 7, 8}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.ValidUpToIndex())
}

func TestHandleDataDedupesRetransmission(t *testing.T) {
	c, mem, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 2}))
	_, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{1, 2, 3, 4}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	require.NoError(t, c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{9, 9, 9, 9}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, mem.calls)
	assert.Equal(t, []byte{1, 2, 3, 4}, mem.writes[0])
}

func TestHandleDataOutOfOrderHoldsWatermark(t *testing.T) {
	c, _, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 3}))
	_, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleData(1, ota.Data{Index: 1, Bytes: []byte{1, 1, 1, 1}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 0, c.ValidUpToIndex())

	require.NoError(t, c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{0, 0, 0, 0}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.ValidUpToIndex())
}

func TestHandleDataBeforeInitIsRejected(t *testing.T) {
	c, _, _ := newHarness(t)
	err := c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{1}})
	assert.ErrorIs(t, err, consumer.ErrNotStarted)
}

func TestHandleAbortClosesSession(t *testing.T) {
	c, _, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 1}))
	_, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleAbort(1))
	frame, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	pkt, err := ota.Unmarshal(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, ota.KindAbortAck, pkt.Kind)
	assert.False(t, c.Active())
}

func TestProcessMessageDispatchesAllKinds(t *testing.T) {
	c, _, gatewayLink := newHarness(t)

	initBuf, err := ota.Marshal(ota.InitPacket(ota.Init{BlockSize: 4, BlockCount: 1}))
	require.NoError(t, err)
	require.NoError(t, c.ProcessMessage(1, initBuf))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	dataBuf, err := ota.Marshal(ota.DataPacket(ota.Data{Index: 0, Bytes: []byte{1, 2, 3, 4}}))
	require.NoError(t, err)
	require.NoError(t, c.ProcessMessage(1, dataBuf))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	doneBuf, err := ota.Marshal(ota.Bare(ota.KindDone))
	require.NoError(t, err)
	require.NoError(t, c.ProcessMessage(1, doneBuf))
	frame, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	pkt, err := ota.Unmarshal(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, ota.KindDoneAck, pkt.Kind)

	abortBuf, err := ota.Marshal(ota.Bare(ota.KindAbort))
	require.NoError(t, err)
	require.NoError(t, c.ProcessMessage(1, abortBuf))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	assert.False(t, c.Active())
}

func TestProcessMessageRejectsUnknownKind(t *testing.T) {
	c, _, _ := newHarness(t)
	buf, err := ota.Marshal(ota.Bare(ota.KindInitAck))
	require.NoError(t, err)
	err = c.ProcessMessage(1, buf)
	assert.ErrorIs(t, err, ota.ErrInvalidPacketType)
}

func TestHandleDoneRepliesDoneAckWhenComplete(t *testing.T) {
	c, _, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 1}))
	_, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{1, 2, 3, 4}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 1, c.ValidUpToIndex())

	require.NoError(t, c.HandleDone(1))
	frame, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	pkt, err := ota.Unmarshal(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, ota.KindDoneAck, pkt.Kind)
}

func TestHandleDoneRepliesStatusWhenIncomplete(t *testing.T) {
	c, _, gatewayLink := newHarness(t)
	require.NoError(t, c.HandleInit(1, ota.Init{BlockSize: 4, BlockCount: 2}))
	_, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleData(1, ota.Data{Index: 0, Bytes: []byte{1, 2, 3, 4}}))
	_, err = gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleDone(1))
	frame, err := gatewayLink.ReceiveSingle(time.Second)
	require.NoError(t, err)
	pkt, err := ota.Unmarshal(frame.Payload)
	require.NoError(t, err)
	require.Equal(t, ota.KindStatus, pkt.Kind)
	assert.EqualValues(t, 1, pkt.Status.ValidUpToIndex)
}

func TestHandleDoneBeforeInitIsRejected(t *testing.T) {
	c, _, _ := newHarness(t)
	err := c.HandleDone(1)
	assert.ErrorIs(t, err, consumer.ErrNotStarted)
}
