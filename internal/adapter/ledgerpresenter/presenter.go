package ledgerpresenter

import (
	"strings"
)

// Presenter delivers formatted messages and structured results without
// coupling to the command layer.
type Presenter struct {
	sendMessage func(table, message string) error
	sendResult  func(table string, result any) error
}

func NewPresenter(sendMessage func(table, message string) error, sendResult func(table string, result any) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendResult:  sendResult,
	}
}

func (p *Presenter) Text(table, message string) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	if strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(table, message)
}

// Result pushes a settlement DTO through the structured egress path.
func (p *Presenter) Result(table string, result any) error {
	if p == nil || p.sendResult == nil || result == nil {
		return nil
	}
	return p.sendResult(table, result)
}
