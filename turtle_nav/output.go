package turtle_nav

import (
	"fmt"
	"net"
)

// CommandSink applies velocity commands to the drive.
type CommandSink interface {
	Send(cmd VelocityCommand) error
	Close() error
}

// OutputSender sends velocity commands over UDP as CSV.
type OutputSender struct {
	conn *net.UDPConn
}

// NewOutputSender creates a UDP sender for the given address. An empty
// address yields a sender that discards commands.
func NewOutputSender(addr string) (*OutputSender, error) {
	if addr == "" {
		return &OutputSender{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve output %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial output %q: %w", addr, err)
	}
	return &OutputSender{conn: conn}, nil
}

// Close releases the UDP socket.
func (s *OutputSender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Send writes "linear,angular,mode" as a CSV payload.
func (s *OutputSender) Send(cmd VelocityCommand) error {
	if s == nil || s.conn == nil {
		return nil
	}
	_, err := s.conn.Write([]byte(formatCommand(cmd)))
	return err
}

func formatCommand(cmd VelocityCommand) string {
	return fmt.Sprintf("%.4f,%.4f,%s", cmd.Linear, cmd.Angular, cmd.Mode.String())
}
