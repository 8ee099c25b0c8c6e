package prover

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
	"github.com/zkble-protocol/zkble-go/pkg/schnorr"
)

func newTestDevice(t *testing.T, faults Faults) *Device {
	t.Helper()
	key, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Faults = faults
	return NewDevice(key, cfg)
}

func TestDeviceRegisterAck(t *testing.T) {
	dev := newTestDevice(t, Faults{})

	resp, err := dev.Respond([]byte("R"))
	require.NoError(t, err)
	assert.Equal(t, AckFirstRegistered, string(resp))

	resp, err = dev.Respond([]byte("R"))
	require.NoError(t, err)
	assert.Equal(t, AckRegistered, string(resp))
}

func TestDevicePublicKeyFrame(t *testing.T) {
	dev := newTestDevice(t, Faults{})

	resp, err := dev.Respond([]byte("I10"))
	require.NoError(t, err)

	pk, err := packet.DecodePublicKey(resp)
	require.NoError(t, err)
	assert.True(t, pk.Point.Equal(dev.PublicKey()))
	assert.True(t, strings.HasPrefix(pk.Metadata, "Key generation time:"))
}

func TestDeviceProofVerifies(t *testing.T) {
	dev := newTestDevice(t, Faults{})
	_, err := dev.Respond([]byte("I42"))
	require.NoError(t, err)

	resp, err := dev.Respond([]byte("D"))
	require.NoError(t, err)

	pkt, err := packet.DecodeProof(resp)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), pkt.DeviceID)
	assert.Equal(t, "Hello, verifier!", pkt.Tag)

	hash, _ := schnorr.TranscriptHash(curve.GeneratorXHex(), dev.PublicKey().XHex(), pkt.CommitmentXHex)
	assert.Equal(t, schnorr.Accepted, schnorr.Verify(pkt.Response, hash, dev.PublicKey(), pkt.Commitment))

	proof := dev.LastProof()
	require.NotNil(t, proof)
	assert.Equal(t, 0, proof.Hash.Cmp(hash))
}

func TestDeviceFaults(t *testing.T) {
	t.Run("tampered response rejected", func(t *testing.T) {
		dev := newTestDevice(t, Faults{TamperResponse: true})
		resp, err := dev.Respond([]byte("D"))
		require.NoError(t, err)
		pkt, err := packet.DecodeProof(resp)
		require.NoError(t, err)

		hash, _ := schnorr.TranscriptHash(curve.GeneratorXHex(), dev.PublicKey().XHex(), pkt.CommitmentXHex)
		assert.Equal(t, schnorr.Rejected, schnorr.Verify(pkt.Response, hash, dev.PublicKey(), pkt.Commitment))
	})

	t.Run("silent", func(t *testing.T) {
		dev := newTestDevice(t, Faults{SilentAcks: true, SilentPublicKey: true, SilentProof: true})
		for _, cmd := range []string{"R", "I10", "D"} {
			resp, err := dev.Respond([]byte(cmd))
			require.NoError(t, err)
			assert.Nil(t, resp, cmd)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		dev := newTestDevice(t, Faults{TruncateProof: 2})
		resp, err := dev.Respond([]byte("D"))
		require.NoError(t, err)
		_, err = packet.DecodeProof(resp)
		assert.ErrorIs(t, err, packet.ErrLengthMismatch)
	})

	t.Run("corrupt hex", func(t *testing.T) {
		dev := newTestDevice(t, Faults{CorruptProofHex: true})
		resp, err := dev.Respond([]byte("D"))
		require.NoError(t, err)
		_, err = packet.DecodeProof(resp)
		assert.ErrorIs(t, err, packet.ErrInvalidHex)
	})

	t.Run("partial", func(t *testing.T) {
		dev := newTestDevice(t, Faults{PartialProof: 40})
		resp, err := dev.Respond([]byte("D"))
		require.NoError(t, err)
		assert.Len(t, resp, 40)
		assert.NotContains(t, string(resp), ";")
	})
}

func TestDeviceSessionKeyNeedsVerifierKey(t *testing.T) {
	dev := newTestDevice(t, Faults{})
	_, err := dev.Respond([]byte("D"))
	require.NoError(t, err)
	assert.Nil(t, dev.SessionKey())

	verifier, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	_, err = dev.Respond(append([]byte("K"), verifier.PublicBytes()...))
	require.NoError(t, err)
	_, err = dev.Respond([]byte("D"))
	require.NoError(t, err)
	assert.Len(t, dev.SessionKey(), 32)
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]byte("abcdefghij"), 4)
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcd", string(chunks[0]))
	assert.Equal(t, "ij", string(chunks[2]))

	assert.Nil(t, Chunk(nil, 4))
	assert.Len(t, Chunk([]byte("abc"), 0), 1)
}

func TestLinkDeliversChunksInOrder(t *testing.T) {
	dev := newTestDevice(t, Faults{})
	link := NewLink(dev)
	defer link.Disconnect()

	var mu sync.Mutex
	var got []byte
	var sizes []int
	cancel := link.OnNotification(func(b []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, b...)
		sizes = append(sizes, len(b))
	})
	defer cancel()

	require.NoError(t, link.Send([]byte("I10")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(string(got), ";")
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range sizes {
		assert.LessOrEqual(t, s, 20)
	}
	_, err := packet.DecodePublicKey(got)
	assert.NoError(t, err)
}

func TestLinkDisconnect(t *testing.T) {
	link := NewLink(newTestDevice(t, Faults{}))
	cancel := link.OnNotification(func([]byte) {})
	assert.Equal(t, 1, link.Subscribers())
	cancel()
	assert.Equal(t, 0, link.Subscribers())

	require.NoError(t, link.Disconnect())
	require.NoError(t, link.Disconnect())
	assert.True(t, link.Closed())
	assert.ErrorIs(t, link.Send([]byte("R")), ErrLinkClosed)
}

func TestLinkFailSend(t *testing.T) {
	link := NewLink(newTestDevice(t, Faults{}))
	defer link.Disconnect()

	link.FailSend('K', assert.AnError)
	assert.NoError(t, link.Send([]byte("R")))
	assert.ErrorIs(t, link.Send([]byte("Kxx")), assert.AnError)
}

func TestServeConn(t *testing.T) {
	dev := newTestDevice(t, Faults{})
	verifier, device := net.Pipe()
	defer verifier.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ServeConn(ctx, device, dev) }()

	_, err := verifier.Write([]byte("R"))
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := verifier.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, AckFirstRegistered, string(buf[:n]))

	verifier.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ServeConn did not return")
	}
}

func TestServerServe(t *testing.T) {
	dev := newTestDevice(t, Faults{})
	srv := NewServer(dev, nil)
	addr, err := srv.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("I7"))
	require.NoError(t, err)

	var frame []byte
	buf := make([]byte, 64)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for !strings.Contains(string(frame), ";") {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		frame = append(frame, buf[:n]...)
	}
	pk, err := packet.DecodePublicKey(frame)
	require.NoError(t, err)
	assert.True(t, pk.Point.Equal(dev.PublicKey()))
	conn.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestPushServer(t *testing.T) {
	frame := []byte("1234PA" + strings.Repeat("AB", 40) + ";0.01\r\n")
	cfg := DefaultConfig()
	srv := NewPushServer(frame, cfg, nil)
	addr, err := srv.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	var got []byte
	buf := make([]byte, 64)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(got) < len(frame) {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, frame, got)
	conn.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}
