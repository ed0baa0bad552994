package testutil

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is one template send seen by Channel.
type SentMessage struct {
	To       string
	Template string
	Params   []string
}

// Channel records template sends. Set Err to fail every send, or FailNext
// to fail only the next n sends.
type Channel struct {
	mu       sync.Mutex
	Sent     []SentMessage
	Err      error
	FailNext int
}

func (c *Channel) SendTemplate(ctx context.Context, to, template string, params []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	if c.FailNext > 0 {
		c.FailNext--
		return "", fmt.Errorf("channel unavailable")
	}
	c.Sent = append(c.Sent, SentMessage{To: to, Template: template, Params: params})
	return fmt.Sprintf("wamid.%d", len(c.Sent)), nil
}

// Templates lists the template names sent, in order.
func (c *Channel) Templates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Sent))
	for _, m := range c.Sent {
		out = append(out, m.Template)
	}
	return out
}
