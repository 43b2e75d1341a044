package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmf-simulator/internal/model"
)

type mockUploader struct {
	mu     sync.Mutex
	inputs map[string]*s3manager.UploadInput
	bodies map[string][]byte
	err    error
	delay  time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (m *mockUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inputs == nil {
		m.inputs = make(map[string]*s3manager.UploadInput)
		m.bodies = make(map[string][]byte)
	}
	m.inputs[*in.Key] = in
	m.bodies[*in.Key] = body
	return &s3manager.UploadOutput{Location: "mock://" + *in.Key}, nil
}

func TestS3Sink_WriteGroupsAndKeys(t *testing.T) {
	up := &mockUploader{}
	s := newS3Sink("rmf-metrics", up, discardLogger())

	batch := testBatch("abc", 2)
	other := testBatch("abc", 1).Samples[0]
	other.LPAR = "PROD02"
	batch.Samples = append(batch.Samples, other)

	require.NoError(t, s.Write(context.Background(), batch))
	require.Len(t, up.inputs, 2)

	const prod01 = "metrics/batch/cpu_utilization/SYSPLEX01/PROD01/2024/05/15/12/batch_abc.json.gz"
	in := up.inputs[prod01]
	require.NotNil(t, in)
	assert.Equal(t, "rmf-metrics", *in.Bucket)
	assert.Equal(t, "gzip", *in.ContentEncoding)
	assert.Equal(t, "2", *in.Metadata["metrics-count"])
	assert.Equal(t, "cpu_utilization", *in.Metadata["metric-type"])
	assert.Contains(t, up.inputs, "metrics/batch/cpu_utilization/SYSPLEX01/PROD02/2024/05/15/12/batch_abc.json.gz")

	zr, err := gzip.NewReader(bytes.NewReader(up.bodies[prod01]))
	require.NoError(t, err)
	var obj s3Object
	require.NoError(t, json.NewDecoder(zr).Decode(&obj))
	assert.Equal(t, "abc", obj.BatchID)
	assert.Equal(t, 2, obj.Count)
	require.Len(t, obj.Metrics, 2)
	assert.Equal(t, "general_purpose", obj.Metrics[0].Labels[model.LabelCPUType])
	assert.Equal(t, "PROD01", obj.Metrics[0].Labels["lpar"])
	assert.Equal(t, 40.0, obj.Metrics[0].Value)
}

func TestS3Sink_WriteError(t *testing.T) {
	s := newS3Sink("rmf-metrics", &mockUploader{err: errors.New("access denied")}, discardLogger())

	err := s.Write(context.Background(), testBatch("abc", 1))
	assert.ErrorContains(t, err, "upload metrics/batch/cpu_utilization")
}

func TestS3Sink_UploadsGroupsConcurrently(t *testing.T) {
	up := &mockUploader{delay: 50 * time.Millisecond}
	s := newS3Sink("rmf-metrics", up, discardLogger())

	batch := testBatch("abc", 1)
	base := batch.Samples[0]
	batch.Samples = nil
	for i := 0; i < 24; i++ {
		smp := base
		smp.LPAR = fmt.Sprintf("LPAR%02d", i)
		batch.Samples = append(batch.Samples, smp)
	}

	start := time.Now()
	require.NoError(t, s.Write(context.Background(), batch))
	elapsed := time.Since(start)

	assert.Len(t, up.inputs, 24)
	assert.Greater(t, up.maxInFlight.Load(), int32(1))
	assert.LessOrEqual(t, up.maxInFlight.Load(), int32(s3UploadParallelism))
	assert.Less(t, elapsed, 24*50*time.Millisecond/2, "uploads ran one after another")
}

type mockBucketAPI struct {
	headErr error
	created bool
}

func (m *mockBucketAPI) HeadBucketWithContext(aws.Context, *s3.HeadBucketInput, ...request.Option) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, m.headErr
}

func (m *mockBucketAPI) CreateBucketWithContext(aws.Context, *s3.CreateBucketInput, ...request.Option) (*s3.CreateBucketOutput, error) {
	m.created = true
	return &s3.CreateBucketOutput{}, nil
}

func TestEnsureBucket(t *testing.T) {
	tests := map[string]struct {
		headErr     error
		wantCreated bool
		wantErr     bool
	}{
		"exists": {},
		"missing": {
			headErr:     awserr.NewRequestFailure(awserr.New("NotFound", "not found", nil), 404, "req-1"),
			wantCreated: true,
		},
		"forbidden": {
			headErr: awserr.NewRequestFailure(awserr.New("Forbidden", "forbidden", nil), 403, "req-2"),
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			api := &mockBucketAPI{headErr: test.headErr}
			err := ensureBucket(context.Background(), api, "rmf-metrics", discardLogger())
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, test.wantCreated, api.created)
		})
	}
}
