// Package message encodes simulation frames in the protobuf wire format.
//
//	message Frame {
//	  uint64 tick = 1;
//	  double time = 2;
//	  repeated AgentState agents = 3;
//	}
//	message AgentState {
//	  int64 id = 1;
//	  double px = 2;
//	  double py = 3;
//	  double vx = 4;
//	  double vy = 5;
//	  double radius = 6;
//	}
package message

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("malformed frame")

type AgentState struct {
	ID     int64
	PX, PY float64
	VX, VY float64
	Radius float64
}

type Frame struct {
	Tick   uint64
	Time   float64
	Agents []AgentState
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendAgent(b []byte, a *AgentState) []byte {
	if a.ID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.ID))
	}
	b = appendDouble(b, 2, a.PX)
	b = appendDouble(b, 3, a.PY)
	b = appendDouble(b, 4, a.VX)
	b = appendDouble(b, 5, a.VY)
	b = appendDouble(b, 6, a.Radius)
	return b
}

// Encode appends f to b and returns the extended buffer.
func Encode(b []byte, f *Frame) []byte {
	if f.Tick != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, f.Tick)
	}
	b = appendDouble(b, 2, f.Time)

	var agent []byte
	for i := range f.Agents {
		agent = appendAgent(agent[:0], &f.Agents[i])
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, agent)
	}
	return b
}

// Decode parses a frame. Unknown fields are skipped.
func Decode(data []byte) (Frame, error) {
	var f Frame
	err := walk(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(v)
			f.Tick = x
			return n, nil
		case num == 2 && typ == protowire.Fixed64Type:
			x, n := protowire.ConsumeFixed64(v)
			f.Time = math.Float64frombits(x)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			a, err := decodeAgent(body)
			if err != nil {
				return 0, fmt.Errorf("agent %d: %w", len(f.Agents), err)
			}
			f.Agents = append(f.Agents, a)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, v), nil
	})
	if err != nil {
		return Frame{}, err
	}
	return f, nil
}

func decodeAgent(data []byte) (AgentState, error) {
	var a AgentState
	err := walk(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			x, n := protowire.ConsumeVarint(v)
			a.ID = int64(x)
			return n, nil
		}
		var dst *float64
		switch num {
		case 2:
			dst = &a.PX
		case 3:
			dst = &a.PY
		case 4:
			dst = &a.VX
		case 5:
			dst = &a.VY
		case 6:
			dst = &a.Radius
		}
		if dst == nil || typ != protowire.Fixed64Type {
			return protowire.ConsumeFieldValue(num, typ, v), nil
		}
		x, n := protowire.ConsumeFixed64(v)
		*dst = math.Float64frombits(x)
		return n, nil
	})
	return a, err
}

// walk calls field for every tag in data. field returns the length of the
// value it consumed, negative on a wire error.
func walk(data []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		m, err := field(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}
