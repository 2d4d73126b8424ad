// Package s3 is the DocumentStore backed by two S3 buckets: the source bucket
// the upstream pipeline drops failed documents into and the processed bucket
// approved results are uploaded to.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
)

// API is the subset of the S3 client the store uses.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Buckets names the buckets and the processor tag written into markers.
type Buckets struct {
	Source    string
	Processed string
	Processor string
}

// Store implements port.DocumentStore on S3.
type Store struct {
	client   API
	uploader Uploader
	buckets  Buckets
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore builds an S3 client from configuration and wraps it in a Store.
func NewStore(ctx context.Context, cfg *config.S3Config, store *config.StoreConfig, logger *slog.Logger) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			return
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithClient(client, manager.NewUploader(client), Buckets{
		Source:    store.SourceBucket,
		Processed: store.ProcessedBucket,
		Processor: store.Processor,
	}, logger), nil
}

// NewWithClient wraps an existing client and uploader.
func NewWithClient(client API, uploader Uploader, buckets Buckets, logger *slog.Logger) *Store {
	return &Store{
		client:   client,
		uploader: uploader,
		buckets:  buckets,
		logger:   logging.OrDefault(logger).With("component", "storage.s3"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) ListPending(ctx context.Context) ([]domain.DocumentRecord, error) {
	var records []domain.DocumentRecord

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.buckets.Source),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}

			head, err := s.head(ctx, key)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, err
			}
			status, err := domain.ParseDocumentStatus(head.Metadata[domain.MetaStatus])
			if err != nil {
				s.logger.Warn("unknown status, skipping document", "name", key, "error", err)
				continue
			}
			if !status.Fetchable() {
				continue
			}

			modified := aws.ToTime(obj.LastModified).UTC()
			contentType := aws.ToString(head.ContentType)
			if contentType == "" {
				contentType = domain.ContentTypeFor(key)
			}
			records = append(records, domain.DocumentRecord{
				Name:        key,
				Size:        aws.ToInt64(obj.Size),
				CreatedAt:   modified,
				ModifiedAt:  modified,
				ContentType: contentType,
				Status:      status,
				Metadata:    head.Metadata,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ModifiedAt.Equal(records[j].ModifiedAt) {
			return records[i].Name < records[j].Name
		}
		return records[i].ModifiedAt.Before(records[j].ModifiedAt)
	})
	return records, nil
}

func (s *Store) MarkProcessing(ctx context.Context, name, batchID string) error {
	meta := map[string]string{
		domain.MetaStatus:    string(domain.DocumentStatusProcessing),
		domain.MetaProcessor: s.buckets.Processor,
		domain.MetaTimestamp: s.now().Format(time.RFC3339Nano),
	}
	if batchID != "" {
		meta[domain.MetaBatchID] = batchID
	}
	return s.SetMetadata(ctx, name, meta)
}

func (s *Store) Download(ctx context.Context, name string, dst io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.buckets.Source),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("s3 download %s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("s3 download: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	if _, err := io.Copy(dst, out.Body); err != nil {
		return fmt.Errorf("s3 download read: %w", err)
	}
	return nil
}

func (s *Store) Upload(ctx context.Context, body io.Reader, target, collection string) error {
	bucket := collection
	if bucket == "" {
		bucket = s.buckets.Processed
	}
	contentType := domain.ContentTypeFor(target)
	if strings.HasSuffix(target, ".json") {
		contentType = "application/json"
	}

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(target),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	s.logger.Info("uploaded", "bucket", bucket, "key", target, "location", result.Location)
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.head(ctx, name); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.buckets.Source),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	s.logger.Info("deleted from source", "name", name)
	return nil
}

// SetMetadata copies the object onto itself with replaced metadata, keeping
// its content type.
func (s *Store) SetMetadata(ctx context.Context, name string, metadata map[string]string) error {
	head, err := s.head(ctx, name)
	if err != nil {
		return err
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.buckets.Source),
		Key:               aws.String(name),
		CopySource:        aws.String(s.buckets.Source + "/" + url.PathEscape(name)),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
		ContentType:       head.ContentType,
	})
	if err != nil {
		return fmt.Errorf("s3 set metadata: %w", err)
	}
	return nil
}

func (s *Store) head(ctx context.Context, name string) (*s3.HeadObjectOutput, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.buckets.Source),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3 head %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 head: %w", err)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
