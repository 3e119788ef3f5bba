package s3

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// awsDefaultHost is used by the object store when an aws connection leaves
// the endpoint empty.
const awsDefaultHost = "s3.amazonaws.com"

// ObjectStore is the generic object I/O capability for a single bucket.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (minio.ObjectInfo, error)
	Remove(ctx context.Context, key string) error
	RemoveBatch(ctx context.Context, keys []string) error
	// List streams a delimiter listing of prefix, resuming strictly after
	// startAfter when it is not empty.
	List(ctx context.Context, prefix, startAfter string) <-chan minio.ObjectInfo
}

// AdminAPI is the subset of the S3 API used for bucket administration.
type AdminAPI interface {
	ListBuckets(ctx context.Context, in *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, in *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, in *awss3.DeleteBucketInput, optFns ...func(*awss3.Options)) (*awss3.DeleteBucketOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	GetBucketLocation(ctx context.Context, in *awss3.GetBucketLocationInput, optFns ...func(*awss3.Options)) (*awss3.GetBucketLocationOutput, error)
	GetBucketVersioning(ctx context.Context, in *awss3.GetBucketVersioningInput, optFns ...func(*awss3.Options)) (*awss3.GetBucketVersioningOutput, error)
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *awss3.CopyObjectInput, optFns ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error)
}

// Presigner signs GET requests without sending them.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Operator performs object I/O against one bucket.
type Operator struct {
	store   ObjectStore
	bucket  string
	profile Profile
}

// NewOperatorWithStore wires an operator to an existing store.
func NewOperatorWithStore(bucket string, profile Profile, store ObjectStore) *Operator {
	return &Operator{store: store, bucket: bucket, profile: profile}
}

func (o *Operator) Bucket() string   { return o.bucket }
func (o *Operator) Profile() Profile { return o.profile }

// Admin performs bucket-level and server-side operations for one endpoint.
type Admin struct {
	api     AdminAPI
	presign Presigner
	region  string
}

// NewAdminWithClient wires an admin to an existing API client. presign may be
// nil, in which case PresignedURL fails.
func NewAdminWithClient(api AdminAPI, presign Presigner, region string) *Admin {
	return &Admin{api: api, presign: presign, region: region}
}

// Region is the connection's configured region, possibly empty.
func (a *Admin) Region() string { return a.region }

// ClientFactory builds the clients for one call.
type ClientFactory interface {
	Operator(conn models.ConnectionWithSecret, bucket string) (*Operator, error)
	Admin(conn models.ConnectionWithSecret) (*Admin, error)
}

// Factory builds fresh clients from a connection. Nothing is cached, so a
// record edited between calls takes effect on the next one.
type Factory struct{}

func (Factory) Operator(conn models.ConnectionWithSecret, bucket string) (*Operator, error) {
	return NewOperator(conn, bucket)
}

func (Factory) Admin(conn models.ConnectionWithSecret) (*Admin, error) {
	return NewAdmin(conn)
}

func normalizeEndpoint(endpoint string, useSSL bool) (host string, secure bool) {
	secure = useSSL
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", secure
	}
	// an explicit scheme beats the flag
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if u, err := url.Parse(endpoint); err == nil {
			secure = u.Scheme == "https"
			return u.Host, secure
		}
	}
	return strings.TrimSuffix(endpoint, "/"), secure
}

func endpointURL(host string, secure bool) string {
	if secure {
		return "https://" + host
	}
	return "http://" + host
}

// NewOperator builds a minio-backed operator for bucket. No network call is
// made here.
func NewOperator(conn models.ConnectionWithSecret, bucket string) (*Operator, error) {
	host, secure := normalizeEndpoint(conn.Endpoint, conn.UseSSL)
	if host == "" {
		host = awsDefaultHost
	}
	lookup := minio.BucketLookupDNS
	if conn.UsePathStyle {
		lookup = minio.BucketLookupPath
	}
	mc, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(conn.AccessKey, conn.SecretKey, ""),
		Secure:       secure,
		Region:       signingRegion(conn.Region),
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, errs.Backend("create storage client: "+err.Error(), err)
	}
	return NewOperatorWithStore(bucket, ProfileFor(conn.Provider), &minioStore{mc: mc, bucket: bucket}), nil
}

// NewAdmin builds an aws-sdk admin client and presigner for the connection's
// endpoint.
func NewAdmin(conn models.ConnectionWithSecret) (*Admin, error) {
	host, secure := normalizeEndpoint(conn.Endpoint, conn.UseSSL)
	cfg := aws.Config{
		Region:      signingRegion(conn.Region),
		Credentials: awscreds.NewStaticCredentialsProvider(conn.AccessKey, conn.SecretKey, ""),
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if host != "" {
			o.BaseEndpoint = aws.String(endpointURL(host, secure))
		}
		o.UsePathStyle = conn.UsePathStyle
		// third-party providers reject the newer default checksum headers
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return NewAdminWithClient(client, awss3.NewPresignClient(client), conn.Region), nil
}

type minioStore struct {
	mc     *minio.Client
	bucket string
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := s.mc.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{DisableMultipart: true})
	return err
}

func (s *minioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *minioStore) Stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	return s.mc.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	return s.mc.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *minioStore) RemoveBatch(ctx context.Context, keys []string) error {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)
	var first error
	// drain fully so the sender goroutine can exit
	for rerr := range s.mc.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil && first == nil {
			first = rerr.Err
		}
	}
	return first
}

func (s *minioStore) List(ctx context.Context, prefix, startAfter string) <-chan minio.ObjectInfo {
	return s.mc.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		StartAfter: startAfter,
		Recursive:  false,
	})
}
