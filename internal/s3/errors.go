package s3

import (
	"errors"
	"net/http"
	"strings"

	"github.com/arencloud/strata/internal/errs"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	minio "github.com/minio/minio-go/v7"
)

// normalize wraps a library failure as a backend error carrying the
// backend's own description. Errors that already carry a kind pass through.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Backend(backendMessage(err), err)
}

func backendMessage(err error) string {
	var mErr minio.ErrorResponse
	if errors.As(err, &mErr) && (mErr.Code != "" || mErr.Message != "") {
		return joinCode(mErr.Code, mErr.Message)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return joinCode(apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

func joinCode(code, msg string) string {
	switch {
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return code + ": " + msg
	}
}

// isNotFound reports whether err means the bucket or key is missing. Text
// matching is only used when the error carries no structured status.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	structured := false
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		structured = true
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey", "404":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	var mErr minio.ErrorResponse
	if errors.As(err, &mErr) && (mErr.StatusCode != 0 || mErr.Code != "") {
		return mErr.StatusCode == http.StatusNotFound || mErr.Code == "NoSuchBucket" || mErr.Code == "NoSuchKey"
	}
	if structured {
		return false
	}
	return containsNotFound(err.Error())
}

func containsNotFound(s string) bool {
	for _, marker := range []string{"404", "NotFound", "NoSuchBucket", "does not exist"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
