package turtle_nav

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownChannel is returned for datagrams whose tag names no channel.
var ErrUnknownChannel = errors.New("unknown perception channel")

// Channel identifies a perception input.
type Channel int

const (
	ChannelLine Channel = iota + 1
	ChannelSign
	ChannelMarker
	ChannelVelocity
)

func (c Channel) String() string {
	switch c {
	case ChannelLine:
		return "line"
	case ChannelSign:
		return "sign"
	case ChannelMarker:
		return "marker"
	case ChannelVelocity:
		return "velocity"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// fieldCount is the number of values a present record carries per channel.
func (c Channel) fieldCount() int {
	switch c {
	case ChannelLine:
		return 3 // cx, cy, angular
	case ChannelSign:
		return 6 // probability, x1, y1, x2, y2, area
	case ChannelMarker:
		return 6 // x1, y1, x2, y2, linear, angular
	case ChannelVelocity:
		return 2 // linear, angular
	default:
		return 0
	}
}

// ParseChannel converts a datagram tag into a Channel.
func ParseChannel(value string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "line", "line_following":
		return ChannelLine, nil
	case "sign", "stop_sign":
		return ChannelSign, nil
	case "marker", "apriltag", "apriltag_following":
		return ChannelMarker, nil
	case "velocity", "obstacle":
		return ChannelVelocity, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, value)
	}
}

// Message is one decoded perception datagram. An empty Fields slice means
// the producer detected nothing this frame.
type Message struct {
	Channel Channel
	Fields  []float64
}

// Absent reports whether the message carries no detection.
func (m Message) Absent() bool {
	return len(m.Fields) == 0
}

// ParseMessage decodes "<channel>[,f1,...]" CSV payloads.
func ParseMessage(b []byte) (Message, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return Message{}, errors.New("empty payload")
	}

	parts := strings.Split(s, ",")
	ch, err := ParseChannel(parts[0])
	if err != nil {
		return Message{}, err
	}
	values := parts[1:]
	if len(values) == 1 && strings.TrimSpace(values[0]) == "" {
		values = nil
	}
	if len(values) != 0 && len(values) != ch.fieldCount() {
		return Message{}, fmt.Errorf("%s: expected 0 or %d fields, got %d", ch, ch.fieldCount(), len(values))
	}

	msg := Message{Channel: ch}
	for i, v := range values {
		f, err := parseF64(v)
		if err != nil {
			return Message{}, fmt.Errorf("%s field %d: %w", ch, i, err)
		}
		msg.Fields = append(msg.Fields, f)
	}
	return msg, nil
}

// Apply publishes the message into the matching feed channel.
func (f *Feed) Apply(msg Message) error {
	if !msg.Absent() && len(msg.Fields) != msg.Channel.fieldCount() {
		return fmt.Errorf("%s: expected %d fields, got %d", msg.Channel, msg.Channel.fieldCount(), len(msg.Fields))
	}
	v := msg.Fields
	switch msg.Channel {
	case ChannelLine:
		if msg.Absent() {
			f.Line.Clear()
			return nil
		}
		f.Line.Publish(LineDetection{CentroidX: v[0], CentroidY: v[1], AngularVelocity: v[2]})
	case ChannelSign:
		if msg.Absent() {
			f.Sign.Clear()
			return nil
		}
		f.Sign.Publish(SignDetection{
			Probability: v[0],
			BBox:        BBox{X1: v[1], Y1: v[2], X2: v[3], Y2: v[4]},
			Area:        v[5],
		})
	case ChannelMarker:
		if msg.Absent() {
			f.Marker.Clear()
			return nil
		}
		f.Marker.Publish(MarkerDetection{
			BBox:            BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]},
			LinearVelocity:  v[4],
			AngularVelocity: v[5],
		})
	case ChannelVelocity:
		if msg.Absent() {
			f.Obstacle.Clear()
			return nil
		}
		f.Obstacle.Publish(ObstacleVelocity{Linear: v[0], Angular: v[1]})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownChannel, msg.Channel)
	}
	return nil
}

// parseF64 parses a float from a CSV field.
func parseF64(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}
