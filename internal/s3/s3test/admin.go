package s3test

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Admin implements the admin subset of the S3 API over a Backend.
type Admin struct {
	b *Backend
}

func (a *Admin) ListBuckets(ctx context.Context, in *awss3.ListBucketsInput, _ ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("ListBuckets")
	names := make([]string, 0, len(a.b.buckets))
	for n := range a.b.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	out := &awss3.ListBucketsOutput{}
	for _, n := range names {
		bk := a.b.buckets[n]
		created := bk.created
		out.Buckets = append(out.Buckets, types.Bucket{
			Name:         aws.String(n),
			CreationDate: &created,
			BucketRegion: nilIfEmpty(bk.region),
		})
	}
	return out, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func (a *Admin) CreateBucket(ctx context.Context, in *awss3.CreateBucketInput, _ ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("CreateBucket")
	a.b.creates = append(a.b.creates, in)
	name := aws.ToString(in.Bucket)
	if _, ok := a.b.buckets[name]; ok {
		return nil, &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou", Message: "bucket already exists"}
	}
	bk := a.b.bucketLocked(name)
	if in.CreateBucketConfiguration != nil {
		bk.region = string(in.CreateBucketConfiguration.LocationConstraint)
	}
	return &awss3.CreateBucketOutput{}, nil
}

func (a *Admin) DeleteBucket(ctx context.Context, in *awss3.DeleteBucketInput, _ ...func(*awss3.Options)) (*awss3.DeleteBucketOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("DeleteBucket")
	name := aws.ToString(in.Bucket)
	bk, ok := a.b.buckets[name]
	if !ok {
		return nil, notFound("NoSuchBucket")
	}
	if len(bk.objects) > 0 {
		return nil, &smithy.GenericAPIError{Code: "BucketNotEmpty", Message: "The bucket you tried to delete is not empty"}
	}
	delete(a.b.buckets, name)
	return &awss3.DeleteBucketOutput{}, nil
}

func (a *Admin) HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, _ ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("HeadBucket")
	if a.b.HeadBucketErr != nil {
		return nil, a.b.HeadBucketErr
	}
	if _, ok := a.b.buckets[aws.ToString(in.Bucket)]; !ok {
		return nil, notFound("NotFound")
	}
	return &awss3.HeadBucketOutput{}, nil
}

func (a *Admin) GetBucketLocation(ctx context.Context, in *awss3.GetBucketLocationInput, _ ...func(*awss3.Options)) (*awss3.GetBucketLocationOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("GetBucketLocation")
	bk, ok := a.b.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, notFound("NoSuchBucket")
	}
	return &awss3.GetBucketLocationOutput{LocationConstraint: types.BucketLocationConstraint(bk.region)}, nil
}

func (a *Admin) GetBucketVersioning(ctx context.Context, in *awss3.GetBucketVersioningInput, _ ...func(*awss3.Options)) (*awss3.GetBucketVersioningOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("GetBucketVersioning")
	bk, ok := a.b.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, notFound("NoSuchBucket")
	}
	return &awss3.GetBucketVersioningOutput{Status: types.BucketVersioningStatus(bk.versioning)}, nil
}

// ListObjectsV2 pages through every key. Continuation tokens are the last
// key of the previous page.
func (a *Admin) ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("ListObjectsV2")
	if a.b.StatsErr != nil && a.b.calls["ListObjectsV2"] == a.b.StatsErrPage {
		return nil, a.b.StatsErr
	}
	name := aws.ToString(in.Bucket)
	bk, ok := a.b.buckets[name]
	if !ok {
		return nil, notFound("NoSuchBucket")
	}
	size := a.b.PageSize
	if size <= 0 {
		size = 1000
	}
	after := aws.ToString(in.ContinuationToken)
	prefix := aws.ToString(in.Prefix)
	out := &awss3.ListObjectsV2Output{Name: in.Bucket, IsTruncated: aws.Bool(false)}
	for _, key := range a.b.sortedKeys(name) {
		if !strings.HasPrefix(key, prefix) || (after != "" && key <= after) {
			continue
		}
		if len(out.Contents) == size {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = out.Contents[size-1].Key
			break
		}
		obj := bk.objects[key]
		modified := obj.modified
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: &modified,
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

func (a *Admin) HeadObject(ctx context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("HeadObject")
	bk, ok := a.b.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, notFound("NotFound")
	}
	obj, ok := bk.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, notFound("NotFound")
	}
	modified := obj.modified
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   nilIfEmpty(obj.contentType),
		ETag:          aws.String(`"etag-` + aws.ToString(in.Key) + `"`),
		LastModified:  &modified,
		StorageClass:  types.StorageClassStandard,
		Metadata:      obj.metadata,
	}, nil
}

// CopyObject expects CopySource as "bucket/escaped-key".
func (a *Admin) CopyObject(ctx context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.count("CopyObject")
	src := aws.ToString(in.CopySource)
	srcBucket, escaped, ok := strings.Cut(src, "/")
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "invalid copy source " + src}
	}
	srcKey, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: err.Error()}
	}
	sb, ok := a.b.buckets[srcBucket]
	if !ok {
		return nil, notFound("NoSuchBucket")
	}
	obj, ok := sb.objects[srcKey]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	obj.data = append([]byte(nil), obj.data...)
	a.b.bucketLocked(aws.ToString(in.Bucket)).objects[aws.ToString(in.Key)] = obj
	return &awss3.CopyObjectOutput{}, nil
}
