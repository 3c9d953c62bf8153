package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes operational counters to CloudWatch. Emission is best
// effort: a failed put never propagates to the request path.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// IncrementCounter bumps a count metric by one.
func (m *Metrics) IncrementCounter(ctx context.Context, name string, dimensions map[string]string) {
	m.put(ctx, name, 1, types.StandardUnitCount, dimensions)
}

// RecordDuration records an elapsed time in milliseconds.
func (m *Metrics) RecordDuration(ctx context.Context, name string, d time.Duration, dimensions map[string]string) {
	m.put(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// RecordValue records an arbitrary numeric value.
func (m *Metrics) RecordValue(ctx context.Context, name string, value float64, dimensions map[string]string) {
	m.put(ctx, name, value, types.StandardUnitNone, dimensions)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) {
	if m == nil || m.client == nil {
		return
	}

	var dims []types.Dimension
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	// Fire and forget; CloudWatch hiccups must not slow requests down.
	go func() {
		putCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, _ = m.client.PutMetricData(putCtx, &cloudwatch.PutMetricDataInput{
			Namespace: aws.String(m.namespace),
			MetricData: []types.MetricDatum{
				{
					MetricName: aws.String(name),
					Value:      aws.Float64(value),
					Unit:       unit,
					Dimensions: dims,
					Timestamp:  aws.Time(time.Now()),
				},
			},
		})
	}()
}
