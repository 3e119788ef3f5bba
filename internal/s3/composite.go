package s3

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/arencloud/strata/internal/errs"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignExpiry applies when PresignedURL is given no duration.
const DefaultPresignExpiry = time.Hour

func copySource(bucket, key string) string {
	return bucket + "/" + strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
}

// Copy duplicates an object server side; no bytes pass through the client.
func (a *Admin) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := a.api.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(srcBucket, srcKey)),
	})
	return normalize(err)
}

// Rename copies oldKey to newKey inside op's bucket and then deletes oldKey.
// It is not atomic: when the delete fails both keys remain.
func Rename(ctx context.Context, a *Admin, op *Operator, oldKey, newKey string) error {
	if err := a.Copy(ctx, op.Bucket(), oldKey, op.Bucket(), newKey); err != nil {
		return err
	}
	if err := op.store.Remove(ctx, oldKey); err != nil {
		return errs.Backend("delete "+oldKey+" after copy to "+newKey+": "+backendMessage(err), err)
	}
	return nil
}

// PresignedURL signs a GET for bucket/key without checking that it exists.
func (a *Admin) PresignedURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	if a.presign == nil {
		return "", errs.Backendf("presigning is not available for this client")
	}
	if expires <= 0 {
		expires = DefaultPresignExpiry
	}
	req, err := a.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", normalize(err)
	}
	return req.URL, nil
}
