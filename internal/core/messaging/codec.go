package messaging

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dep2p/go-cpman/pkg/types"
)

// DefaultMaxMessageLength 默认最大消息长度 (1 MB)
const DefaultMaxMessageLength uint32 = 1 << 20

// maxStringLength 标识、主题和错误文本的长度上限
const maxStringLength uint32 = 64 << 10

// ============================================================================
//                              帧定义
// ============================================================================

// 应答状态
const (
	StatusOK        uint8 = 0
	StatusError     uint8 = 1
	StatusNoHandler uint8 = 2
)

// request 请求帧
type request struct {
	ID      string // uuid
	Subject string
	From    types.NodeID
	Payload []byte
}

// response 应答帧
type response struct {
	Status  uint8
	Payload []byte
	Error   string
}

// err 将非成功状态转换为错误
func (r *response) err() error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusNoHandler:
		return fmt.Errorf("%w: %s", ErrNoHandler, r.Error)
	case StatusError:
		return fmt.Errorf("%w: %s", ErrRemote, r.Error)
	default:
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, r.Status)
	}
}

// ============================================================================
//                              编解码
// ============================================================================

// codec 带长度上限的帧编解码
type codec struct {
	maxLen uint32
}

// writeRequest 写入请求
func (c codec) writeRequest(w io.Writer, req *request) error {
	if err := c.writeString(w, req.ID); err != nil {
		return err
	}
	if err := c.writeString(w, req.Subject); err != nil {
		return err
	}
	if err := c.writeString(w, string(req.From)); err != nil {
		return err
	}
	return c.writeBytes(w, req.Payload)
}

// readRequest 读取请求
func (c codec) readRequest(r io.Reader) (*request, error) {
	req := &request{}
	var err error

	if req.ID, err = c.readString(r); err != nil {
		return nil, err
	}
	if req.Subject, err = c.readString(r); err != nil {
		return nil, err
	}
	from, err := c.readString(r)
	if err != nil {
		return nil, err
	}
	req.From = types.NodeID(from)
	if req.Payload, err = c.readBytes(r); err != nil {
		return nil, err
	}
	return req, nil
}

// writeResponse 写入应答
func (c codec) writeResponse(w io.Writer, resp *response) error {
	if err := binary.Write(w, binary.BigEndian, resp.Status); err != nil {
		return err
	}
	if err := c.writeBytes(w, resp.Payload); err != nil {
		return err
	}
	return c.writeString(w, resp.Error)
}

// readResponse 读取应答
func (c codec) readResponse(r io.Reader) (*response, error) {
	resp := &response{}

	if err := binary.Read(r, binary.BigEndian, &resp.Status); err != nil {
		return nil, err
	}
	data, err := c.readBytes(r)
	if err != nil {
		return nil, err
	}
	resp.Payload = data

	if resp.Error, err = c.readString(r); err != nil {
		return nil, err
	}
	return resp, nil
}

// writeBytes 写入长度前缀的负载
func (c codec) writeBytes(w io.Writer, data []byte) error {
	return writeField(w, data, c.maxLen)
}

// readBytes 读取长度前缀的负载
func (c codec) readBytes(r io.Reader) ([]byte, error) {
	return readField(r, c.maxLen)
}

func (c codec) writeString(w io.Writer, s string) error {
	return writeField(w, []byte(s), maxStringLength)
}

func (c codec) readString(r io.Reader) (string, error) {
	data, err := readField(r, maxStringLength)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeField(w io.Writer, data []byte, maxLen uint32) error {
	if uint64(len(data)) > uint64(maxLen) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), maxLen)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func readField(r io.Reader, maxLen uint32) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}

	// 防止内存耗尽
	if length > maxLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, maxLen)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
