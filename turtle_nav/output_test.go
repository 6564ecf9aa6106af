package turtle_nav

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputSenderWritesCSV(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	s, err := NewOutputSender(ln.LocalAddr().String())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send(VelocityCommand{Mode: ModeLineFollowing, Linear: 0.1, Angular: -0.2}))

	require.NoError(t, ln.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 256)
	n, _, err := ln.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "0.1000,-0.2000,LINE_FOLLOWING", string(buf[:n]))
}

func TestOutputSenderWithoutAddressDiscards(t *testing.T) {
	s, err := NewOutputSender("")
	require.NoError(t, err)
	assert.NoError(t, s.Send(VelocityCommand{Linear: 1}))
	assert.NoError(t, s.Close())

	var nilSender *OutputSender
	assert.NoError(t, nilSender.Send(VelocityCommand{}))
	assert.NoError(t, nilSender.Close())
}

func TestNewOutputSenderBadAddress(t *testing.T) {
	_, err := NewOutputSender("not-an-addr")
	assert.Error(t, err)
}
