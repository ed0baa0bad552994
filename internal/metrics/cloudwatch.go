package metrics

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/unifly3582/orderflow/internal/aws"
)

// Emitter publishes count metrics to CloudWatch under one namespace.
type Emitter struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

func NewEmitter(client aws.CloudWatchAPI, namespace string) *Emitter {
	return &Emitter{client: client, namespace: namespace, nowFunc: time.Now}
}

// Counts sends each name/value pair as a Count datum in a single call.
func (e *Emitter) Counts(ctx context.Context, counts map[string]int) error {
	if e == nil || e.client == nil || len(counts) == 0 {
		return nil
	}
	now := e.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(counts))
	for name, v := range counts {
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(float64(v)),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  sdkaws.Time(now),
		})
	}
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(e.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
