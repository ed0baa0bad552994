package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestEmitter_Counts(t *testing.T) {
	fake := &fakeCloudWatch{}
	e := NewEmitter(fake, "OrderFlow")

	require.NoError(t, e.Counts(context.Background(), map[string]int{"TrackingOrdersEnqueued": 4}))
	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "OrderFlow", *in.Namespace)
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, "TrackingOrdersEnqueued", *in.MetricData[0].MetricName)
	assert.Equal(t, 4.0, *in.MetricData[0].Value)
}

func TestEmitter_NoopCases(t *testing.T) {
	var nilEmitter *Emitter
	assert.NoError(t, nilEmitter.Counts(context.Background(), map[string]int{"x": 1}))

	fake := &fakeCloudWatch{}
	assert.NoError(t, NewEmitter(fake, "ns").Counts(context.Background(), nil))
	assert.Empty(t, fake.inputs)
}

func TestEmitter_Error(t *testing.T) {
	e := NewEmitter(&fakeCloudWatch{err: errors.New("denied")}, "ns")
	err := e.Counts(context.Background(), map[string]int{"x": 1})
	require.Error(t, err)
}
