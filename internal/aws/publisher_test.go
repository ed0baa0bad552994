package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

func TestPublisher_Publish(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.local/queue")

	err := p.Publish(context.Background(), map[string]string{"order_id": "10001"}, map[string]string{
		"kind":           "tracking_sync",
		"correlation_id": "",
	})
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, "https://sqs.local/queue", *in.QueueUrl)
	assert.JSONEq(t, `{"order_id":"10001"}`, *in.MessageBody)
	assert.Contains(t, in.MessageAttributes, "kind")
	assert.NotContains(t, in.MessageAttributes, "correlation_id")
}

func TestPublisher_PublishError(t *testing.T) {
	p := NewPublisher(&fakeSQS{err: errors.New("throttled")}, "q")
	err := p.Publish(context.Background(), struct{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message")
}
