package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/oshokin/energy-sim/internal/config"
)

// fakeProducer records produced records and can fail on demand.
type fakeProducer struct {
	// records holds everything produced.
	records []*kgo.Record
	// err is returned for every record when set.
	err error
	// closed is set by Close.
	closed bool
}

// ProduceSync stores records and returns one result per record.
func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))

	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}

		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}

	return results
}

// Close marks the producer closed.
func (p *fakeProducer) Close() { p.closed = true }

// TestKafkaSinkPublish verifies records are keyed by nation and carry the JSON report.
func TestKafkaSinkPublish(t *testing.T) {
	t.Parallel()

	producer := new(fakeProducer)
	s := NewKafkaSinkWithProducer(producer, "reports")

	report := Report{
		NationID:   "nation-1",
		Seq:        3,
		Total:      1.5e9,
		Population: 2,
		PerCapita:  7.5e8,
		Breakdown:  map[string]float64{"r1": 1.5e9},
		At:         time.Unix(100, 0).UTC(),
	}

	require.NoError(t, s.Publish(context.Background(), report))
	require.Len(t, producer.records, 1)
	require.Equal(t, "reports", producer.records[0].Topic)
	require.Equal(t, []byte("nation-1"), producer.records[0].Key)

	var decoded Report
	require.NoError(t, json.Unmarshal(producer.records[0].Value, &decoded))
	require.Equal(t, report, decoded)

	producer.err = errors.New("broker down")
	require.ErrorContains(t, s.Publish(context.Background(), report), "broker down")

	require.NoError(t, s.Close())
	require.True(t, producer.closed)
}

// TestOpen selects the sink from configuration.
func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := Open(config.SinkConfig{Driver: config.SinkLog})
	require.NoError(t, err)
	require.NoError(t, s.Publish(context.Background(), Report{NationID: "n"}))

	_, err = Open(config.SinkConfig{Driver: "carrier-pigeon"})
	require.Error(t, err)

	_, err = NewKafkaSink([]string{"localhost:9092"}, "")
	require.ErrorIs(t, err, errTopicRequired)
}

// TestReportClone verifies the breakdown is not shared.
func TestReportClone(t *testing.T) {
	t.Parallel()

	r := Report{Breakdown: map[string]float64{"a": 1}}
	c := r.Clone()
	c.Breakdown["a"] = 2
	require.InDelta(t, 1.0, r.Breakdown["a"], 1e-12)
}
