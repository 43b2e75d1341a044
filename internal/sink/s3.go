package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"golang.org/x/sync/errgroup"

	"rmf-simulator/internal/model"
)

type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type objectUploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

type bucketAPI interface {
	HeadBucketWithContext(ctx aws.Context, input *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error)
	CreateBucketWithContext(ctx aws.Context, input *s3.CreateBucketInput, opts ...request.Option) (*s3.CreateBucketOutput, error)
}

// s3UploadParallelism bounds concurrent object uploads within one write.
const s3UploadParallelism = 8

// S3Sink uploads one gzip JSON object per (metric, sysplex, lpar) group of a batch.
type S3Sink struct {
	bucket   string
	uploader objectUploader
	parallel int
	logger   *slog.Logger
}

type s3Object struct {
	BatchID    string     `json:"batch_id"`
	MetricType string     `json:"metric_type"`
	Sysplex    string     `json:"sysplex"`
	LPAR       string     `json:"lpar"`
	CreatedAt  time.Time  `json:"created_at"`
	Count      int        `json:"metrics_count"`
	Metrics    []s3Metric `json:"metrics"`
}

type s3Metric struct {
	Timestamp time.Time         `json:"timestamp"`
	Labels    map[string]string `json:"labels"`
	Value     float64           `json:"value"`
}

type s3GroupKey struct {
	metric  model.MetricName
	sysplex string
	lpar    string
}

func OpenS3(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3Sink, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, ""),
		Region:           aws.String(opts.Region),
		Endpoint:         aws.String(opts.Endpoint),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(!opts.UseSSL),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	client := s3.New(sess)
	if err := ensureBucket(ctx, client, opts.Bucket, logger); err != nil {
		return nil, err
	}
	logger.Info("s3 storage ready", "endpoint", opts.Endpoint, "bucket", opts.Bucket)
	return newS3Sink(opts.Bucket, s3manager.NewUploaderWithClient(client), logger), nil
}

func newS3Sink(bucket string, uploader objectUploader, logger *slog.Logger) *S3Sink {
	return &S3Sink{bucket: bucket, uploader: uploader, parallel: s3UploadParallelism, logger: logger}
}

func (s *S3Sink) Name() string {
	return "s3"
}

func (s *S3Sink) Write(ctx context.Context, batch model.MetricBatch) error {
	var (
		order  []s3GroupKey
		groups = make(map[s3GroupKey][]model.MetricSample)
	)
	for _, smp := range batch.Samples {
		k := s3GroupKey{metric: smp.Metric, sysplex: smp.Sysplex, lpar: smp.LPAR}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], smp)
	}

	errs := make([]error, len(order))
	var g errgroup.Group
	g.SetLimit(s.parallel)
	for i, k := range order {
		g.Go(func() error {
			errs[i] = s.upload(ctx, batch, k, groups[k])
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *S3Sink) Close(context.Context) error {
	return nil
}

func (s *S3Sink) upload(ctx context.Context, batch model.MetricBatch, k s3GroupKey, samples []model.MetricSample) error {
	obj := s3Object{
		BatchID:    batch.ID,
		MetricType: string(k.metric),
		Sysplex:    k.sysplex,
		LPAR:       k.lpar,
		CreatedAt:  batch.Tick.UTC(),
		Count:      len(samples),
		Metrics:    make([]s3Metric, 0, len(samples)),
	}
	for _, smp := range samples {
		obj.Metrics = append(obj.Metrics, s3Metric{Timestamp: smp.Timestamp.UTC(), Labels: smp.LabelMap(), Value: smp.Value})
	}
	body, err := gzipJSON(obj)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k.metric, err)
	}

	key := objectKey(batch, k)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
		Metadata: map[string]*string{
			"batch-id":      aws.String(batch.ID),
			"metric-type":   aws.String(string(k.metric)),
			"sysplex":       aws.String(k.sysplex),
			"lpar":          aws.String(k.lpar),
			"metrics-count": aws.String(strconv.Itoa(len(samples))),
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func objectKey(batch model.MetricBatch, k s3GroupKey) string {
	return fmt.Sprintf("metrics/batch/%s/%s/%s/%s/batch_%s.json.gz",
		k.metric, k.sysplex, k.lpar, batch.Tick.UTC().Format("2006/01/02/15"), batch.ID)
}

func gzipJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ensureBucket(ctx context.Context, api bucketAPI, bucket string, logger *slog.Logger) error {
	_, err := api.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	var reqErr awserr.RequestFailure
	if !errors.As(err, &reqErr) || reqErr.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	if _, err := api.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	logger.Info("s3 bucket created", "bucket", bucket)
	return nil
}
