package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store puts public-read objects into a bucket and returns their CDN or S3 URL.
type S3Store struct {
	client        s3iface.S3API
	bucket        string
	region        string
	cloudFrontURL string
}

func NewS3Store(bucket, region, cloudFrontURL string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithClient(s3.New(sess), bucket, region, cloudFrontURL), nil
}

func NewS3StoreWithClient(client s3iface.S3API, bucket, region, cloudFrontURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		region:        region,
		cloudFrontURL: strings.TrimRight(cloudFrontURL, "/"),
	}
}

func (s *S3Store) Mode() string { return "s3" }

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		rs = bytes.NewReader(data)
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          rs,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return "", err
	}
	return s.urlFor(key), nil
}

func (s *S3Store) Delete(ctx context.Context, rawURL string) error {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Store) urlFor(key string) string {
	if s.cloudFrontURL != "" {
		return s.cloudFrontURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3Store) keyFromURL(rawURL string) (string, error) {
	if s.cloudFrontURL != "" && strings.HasPrefix(rawURL, s.cloudFrontURL+"/") {
		return strings.TrimPrefix(rawURL, s.cloudFrontURL+"/"), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrForeignURL, err)
	}
	if u.Host != fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket, s.region) {
		return "", fmt.Errorf("%w: %q does not belong to bucket %s", ErrForeignURL, rawURL, s.bucket)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}
