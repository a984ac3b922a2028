package probe

import "errors"

// ErrUnmappedMessageType 消息类型不参与控制消息统计
var ErrUnmappedMessageType = errors.New("unmapped control message type")
