package cpman

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-cpman/pkg/types"
)

// ============================================================================
//                              消息定义
// ============================================================================
//
// 使用 protobuf 线格式手工编码，字段号即下面的常量。未知字段被跳过。
//
//	LoadRequest     { 1: metric varint, 2: scope bytes, 3: window_seconds varint (可选) }
//	LoadReply       { 1: found varint, 2: latest fixed64, 3: average fixed64,
//	                  4: last_update varint, 5: has_recent varint, 6: recent packed fixed64 }
//	ResourceRequest { 1: category varint }
//	ResourceReply   { 1: names repeated bytes }

const (
	fieldLoadMetric protowire.Number = 1
	fieldLoadScope  protowire.Number = 2
	fieldLoadWindow protowire.Number = 3

	fieldReplyFound     protowire.Number = 1
	fieldReplyLatest    protowire.Number = 2
	fieldReplyAverage   protowire.Number = 3
	fieldReplyUpdate    protowire.Number = 4
	fieldReplyHasRecent protowire.Number = 5
	fieldReplyRecent    protowire.Number = 6

	fieldResourceCategory protowire.Number = 1
	fieldResourceNames    protowire.Number = 1
)

// loadRequest 负载查询请求
type loadRequest struct {
	Metric types.MetricType
	Scope  string
	Window *time.Duration
}

// resourceRequest 资源发现请求
type resourceRequest struct {
	Category types.Category
}

// ============================================================================
//                              编码
// ============================================================================

func encodeLoadRequest(req *loadRequest) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldLoadMetric, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.Metric))
	if req.Scope != "" {
		b = protowire.AppendTag(b, fieldLoadScope, protowire.BytesType)
		b = protowire.AppendString(b, req.Scope)
	}
	if req.Window != nil {
		b = protowire.AppendTag(b, fieldLoadWindow, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*req.Window/time.Second))
	}
	return b
}

func encodeLoadReply(s *types.LoadSnapshot) []byte {
	var b []byte
	if s == nil {
		b = protowire.AppendTag(b, fieldReplyFound, protowire.VarintType)
		return protowire.AppendVarint(b, 0)
	}

	b = protowire.AppendTag(b, fieldReplyFound, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, fieldReplyLatest, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(s.Latest))
	b = protowire.AppendTag(b, fieldReplyAverage, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(s.Average))
	b = protowire.AppendTag(b, fieldReplyUpdate, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.LastUpdate))

	if s.HasRecent {
		b = protowire.AppendTag(b, fieldReplyHasRecent, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)

		packed := make([]byte, 0, 8*len(s.Recent))
		for _, x := range s.Recent {
			packed = protowire.AppendFixed64(packed, math.Float64bits(x))
		}
		b = protowire.AppendTag(b, fieldReplyRecent, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func encodeResourceRequest(req *resourceRequest) []byte {
	b := protowire.AppendTag(nil, fieldResourceCategory, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(req.Category))
}

func encodeResourceReply(names []string) []byte {
	var b []byte
	for _, n := range names {
		b = protowire.AppendTag(b, fieldResourceNames, protowire.BytesType)
		b = protowire.AppendString(b, n)
	}
	return b
}

// ============================================================================
//                              解码
// ============================================================================

// field 一个已解析的字段
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	fixed  uint64
	bytes  []byte
}

// walk 依次解析 b 中的字段，未知类型的字段被跳过
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.fixed, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeLoadRequest(b []byte) (*loadRequest, error) {
	req := &loadRequest{}
	err := walk(b, func(f field) error {
		switch {
		case f.num == fieldLoadMetric && f.typ == protowire.VarintType:
			if f.varint > math.MaxUint8 {
				return fmt.Errorf("%w: %d", ErrInvalidMetricType, f.varint)
			}
			req.Metric = types.MetricType(f.varint)
		case f.num == fieldLoadScope && f.typ == protowire.BytesType:
			req.Scope = string(f.bytes)
		case f.num == fieldLoadWindow && f.typ == protowire.VarintType:
			w := time.Duration(f.varint) * time.Second
			req.Window = &w
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func decodeLoadReply(b []byte) (*types.LoadSnapshot, error) {
	s := &types.LoadSnapshot{}
	found := false
	err := walk(b, func(f field) error {
		switch {
		case f.num == fieldReplyFound && f.typ == protowire.VarintType:
			found = f.varint != 0
		case f.num == fieldReplyLatest && f.typ == protowire.Fixed64Type:
			s.Latest = math.Float64frombits(f.fixed)
		case f.num == fieldReplyAverage && f.typ == protowire.Fixed64Type:
			s.Average = math.Float64frombits(f.fixed)
		case f.num == fieldReplyUpdate && f.typ == protowire.VarintType:
			s.LastUpdate = int64(f.varint)
		case f.num == fieldReplyHasRecent && f.typ == protowire.VarintType:
			s.HasRecent = f.varint != 0
		case f.num == fieldReplyRecent && f.typ == protowire.BytesType:
			if len(f.bytes)%8 != 0 {
				return fmt.Errorf("%w: recent length %d", ErrMalformedMessage, len(f.bytes))
			}
			s.Recent = make([]float64, 0, len(f.bytes)/8)
			for p := f.bytes; len(p) > 0; {
				v, n := protowire.ConsumeFixed64(p)
				if n < 0 {
					return fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
				}
				s.Recent = append(s.Recent, math.Float64frombits(v))
				p = p[n:]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if s.HasRecent && s.Recent == nil {
		s.Recent = []float64{}
	}
	return s, nil
}

func decodeResourceRequest(b []byte) (*resourceRequest, error) {
	req := &resourceRequest{}
	err := walk(b, func(f field) error {
		if f.num == fieldResourceCategory && f.typ == protowire.VarintType {
			if f.varint > math.MaxUint8 {
				return fmt.Errorf("%w: %d", ErrInvalidCategory, f.varint)
			}
			req.Category = types.Category(f.varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func decodeResourceReply(b []byte) ([]string, error) {
	names := []string{}
	err := walk(b, func(f field) error {
		if f.num == fieldResourceNames && f.typ == protowire.BytesType {
			names = append(names, string(f.bytes))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
