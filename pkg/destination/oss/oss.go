// Package oss provides a writer.Destination over Aliyun OSS appendable
// objects.
//
// Each Append is one AppendObject request at the position the previous one
// returned, so a concurrent appender makes the next request fail with a
// position mismatch instead of interleaving. Data is durable in OSS once the
// request returns; Flush and Sync have nothing left to do.
package oss

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/common/validation"
	"github.com/vnykmshr/byteflow/pkg/streaming/writer"
)

// AppendableObjectType is the x-oss-object-type of objects AppendObject
// can extend.
const AppendableObjectType = "Appendable"

// headerOssObjectType is the response header carrying an object's type;
// the SDK does not export a constant for it.
const headerOssObjectType = "X-Oss-Object-Type"

// Bucket is the subset of *oss.Bucket a Destination needs.
type Bucket interface {
	AppendObject(objectKey string, reader io.Reader, appendPosition int64, options ...oss.Option) (int64, error)
	IsObjectExist(objectKey string, options ...oss.Option) (bool, error)
	GetObjectDetailedMeta(objectKey string, options ...oss.Option) (http.Header, error)
}

// Destination appends to one object.
type Destination struct {
	bucket     Bucket
	bucketName string
	key        string
	options    []oss.Option
	next       int64
}

// New creates a Destination for key in bucket. bucketName is only used
// for Name. options are passed to every AppendObject request.
func New(bucket Bucket, bucketName, key string, options ...oss.Option) (*Destination, error) {
	if err := validation.ValidateNotNil("oss", "Bucket", bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty("oss", "Key", key); err != nil {
		return nil, err
	}
	return &Destination{bucket: bucket, bucketName: bucketName, key: key, options: options}, nil
}

// Append issues AppendObject at the next position.
func (d *Destination) Append(p []byte) error {
	next, err := d.bucket.AppendObject(d.key, bytes.NewReader(p), d.next, d.options...)
	if err != nil {
		return mapError(err)
	}
	d.next = next
	return nil
}

// Flush is a no-op.
func (d *Destination) Flush() error {
	return nil
}

// Sync is a no-op.
func (d *Destination) Sync() error {
	return nil
}

// Tell reads the object length. A missing object is at position 0; an
// existing object that is not appendable cannot be written.
func (d *Destination) Tell() (uint64, error) {
	exists, err := d.bucket.IsObjectExist(d.key)
	if err != nil {
		return 0, mapError(err)
	}
	if !exists {
		d.next = 0
		return 0, nil
	}
	meta, err := d.bucket.GetObjectDetailedMeta(d.key)
	if err != nil {
		return 0, mapError(err)
	}
	if t := meta.Get(headerOssObjectType); t != "" && t != AppendableObjectType {
		return 0, bferrors.Statusf(bferrors.CodeFailedPrecondition, "object %s has type %s, not %s", d.key, t, AppendableObjectType)
	}
	length, err := strconv.ParseInt(meta.Get(oss.HTTPHeaderContentLength), 10, 64)
	if err != nil || length < 0 {
		return 0, bferrors.Statusf(bferrors.CodeDataLoss, "object %s has invalid Content-Length %q", d.key, meta.Get(oss.HTTPHeaderContentLength))
	}
	d.next = length
	return uint64(length), nil
}

// Name returns "oss://<bucket>/<key>".
func (d *Destination) Name() (string, error) {
	return "oss://" + d.bucketName + "/" + d.key, nil
}

// Provider opens appendable objects in one bucket, one object per path.
type Provider struct {
	Bucket     Bucket
	BucketName string

	// KeyPrefix is prepended to the path to form the object key.
	KeyPrefix string

	// Options are passed to every AppendObject request, e.g. oss.ContentType.
	Options []oss.Option
}

// NewProvider connects to the bucket described by config.
func NewProvider(config Config) (*Provider, error) {
	bucket, err := OpenBucket(config)
	if err != nil {
		return nil, err
	}
	return &Provider{Bucket: bucket, BucketName: config.Bucket}, nil
}

// OpenAppendable returns a Destination for KeyPrefix+path. The object is
// created by the first Append.
func (p *Provider) OpenAppendable(path string) (writer.Destination, error) {
	return New(p.Bucket, p.BucketName, p.KeyPrefix+path, p.Options...)
}

// mapError converts an OSS SDK error into an errors.Status.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	code := bferrors.CodeUnknown
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		switch {
		case svcErr.Code == "PositionNotEqualToLength":
			code = bferrors.CodeOutOfRange
		case svcErr.Code == "ObjectNotAppendable":
			code = bferrors.CodeFailedPrecondition
		case svcErr.Code == "InvalidArgument":
			code = bferrors.CodeInvalidArgument
		case svcErr.StatusCode == http.StatusNotFound:
			code = bferrors.CodeNotFound
		case svcErr.StatusCode == http.StatusForbidden, svcErr.StatusCode == http.StatusUnauthorized:
			code = bferrors.CodePermissionDenied
		case svcErr.StatusCode == http.StatusConflict:
			code = bferrors.CodeFailedPrecondition
		case svcErr.StatusCode == http.StatusRequestEntityTooLarge:
			code = bferrors.CodeResourceExhausted
		case svcErr.StatusCode >= http.StatusInternalServerError:
			code = bferrors.CodeUnavailable
		}
	}
	return &bferrors.Status{Code: code, Message: err.Error(), Cause: err}
}
