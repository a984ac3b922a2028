package messaging

import "errors"

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrServiceClosed 通信服务已关闭
	ErrServiceClosed = errors.New("messaging service closed")

	// ErrUnknownPeer 对端不在成员列表中
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrNoConnection 无法连接到节点
	ErrNoConnection = errors.New("no connection to peer")

	// ErrNoHandler 对端没有该主题的处理器
	ErrNoHandler = errors.New("no handler for subject")

	// ErrHandlerExists 主题已注册处理器
	ErrHandlerExists = errors.New("handler already registered")

	// ErrRemote 对端处理器返回错误
	ErrRemote = errors.New("remote handler failed")

	// ErrMessageTooLarge 消息过大
	ErrMessageTooLarge = errors.New("message too large")

	// ErrInvalidResponse 无效响应
	ErrInvalidResponse = errors.New("invalid response")
)
