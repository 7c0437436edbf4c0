package filevault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Vault struct {
	client *minio.Client
	bucket string
	region string

	initOnce sync.Once
	initErr  error
}

func NewS3(cfg S3Config) (*S3Vault, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("filevault: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("filevault: s3 credentials are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("filevault: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("filevault: init s3 client: %w", err)
	}
	return &S3Vault{client: client, bucket: bucket, region: region}, nil
}

func (v *S3Vault) ensureBucket(ctx context.Context) error {
	v.initOnce.Do(func() {
		exists, err := v.client.BucketExists(ctx, v.bucket)
		if err != nil {
			v.initErr = err
			return
		}
		if exists {
			return
		}
		v.initErr = v.client.MakeBucket(ctx, v.bucket, minio.MakeBucketOptions{Region: v.region})
	})
	return v.initErr
}

func (v *S3Vault) Put(ctx context.Context, projectID, name string, payload []byte) error {
	key, err := objectKey(projectID, name)
	if err != nil {
		return err
	}
	if err := v.ensureBucket(ctx); err != nil {
		return fmt.Errorf("filevault: ensure bucket: %w", err)
	}
	if payload == nil {
		payload = []byte{}
	}
	_, err = v.client.PutObject(ctx, v.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (v *S3Vault) Get(ctx context.Context, projectID, name string) ([]byte, error) {
	key, err := objectKey(projectID, name)
	if err != nil {
		return nil, err
	}
	if err := v.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("filevault: ensure bucket: %w", err)
	}
	obj, err := v.client.GetObject(ctx, v.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (v *S3Vault) Delete(ctx context.Context, projectID, name string) error {
	key, err := objectKey(projectID, name)
	if err != nil {
		return err
	}
	if err := v.ensureBucket(ctx); err != nil {
		return fmt.Errorf("filevault: ensure bucket: %w", err)
	}
	return v.client.RemoveObject(ctx, v.bucket, key, minio.RemoveObjectOptions{})
}

// URL mints a presigned download link valid for one hour.
func (v *S3Vault) URL(ctx context.Context, projectID, name string) (string, error) {
	key, err := objectKey(projectID, name)
	if err != nil {
		return "", err
	}
	u, err := v.client.PresignedGetObject(ctx, v.bucket, key, time.Hour, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
