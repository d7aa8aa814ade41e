// Package storage implements the Object Storage Provider Actor kind
// (spec §4.4) backed by S3-compatible storage via minio-go.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
)

// Activate opens a minio client against the descriptor's config (expects
// "endpoint", "access_key", "secret_key", "bucket", optionally "secure")
// and spawns the actor.
func Activate(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error) {
	client, err := minio.New(desc.Config["endpoint"], &minio.Options{
		Creds:  credentials.NewStaticV4(desc.Config["access_key"], desc.Config["secret_key"], ""),
		Secure: desc.Config["secure"] == "true",
	})
	if err != nil {
		return nil, &domain.ConnectionError{Message: err.Error()}
	}
	bucket := desc.Config["bucket"]
	if ok, err := client.BucketExists(ctx, bucket); err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("bucket %q not found", bucket)
		}
		return nil, &domain.ConnectionError{Message: err.Error()}
	}

	handle := func(ctx context.Context, op string, args []byte) ([]byte, error) {
		return dispatch(ctx, client, bucket, op, args)
	}
	test := func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		_, err := client.BucketExists(ctx, bucket)
		return time.Since(start), err
	}
	info := func() domain.ConnectionInfo {
		return domain.ConnectionInfo{
			Kind:    domain.ProviderKindStorage,
			Subtype: desc.Subtype,
			Details: map[string]string{"endpoint": desc.Config["endpoint"], "bucket": bucket},
		}
	}

	return actor.Spawn(desc.Name, domain.ProviderKindStorage, inboxDepth, handle, test, info, func() {}, logger), nil
}

func dispatch(ctx context.Context, client *minio.Client, bucket, op string, rawArgs []byte) ([]byte, error) {
	switch op {
	case "put":
		var args struct {
			Key         string `json:"key"`
			Body        []byte `json:"body"`
			ContentType string `json:"content_type"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		_, err := client.PutObject(ctx, bucket, args.Key, bytes.NewReader(args.Body), int64(len(args.Body)),
			minio.PutObjectOptions{ContentType: args.ContentType})
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	case "get":
		var args struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		obj, err := client.GetObject(ctx, bucket, args.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		body, err := io.ReadAll(obj)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Body []byte `json:"body"`
		}{Body: body})

	case "delete":
		var args struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		if err := client.RemoveObject(ctx, bucket, args.Key, minio.RemoveObjectOptions{}); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	case "list":
		var args struct {
			Prefix string `json:"prefix"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		var objects []struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		}
		for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: args.Prefix, Recursive: true}) {
			if obj.Err != nil {
				return nil, obj.Err
			}
			objects = append(objects, struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			}{Key: obj.Key, Size: obj.Size})
		}
		return json.Marshal(struct {
			Objects any `json:"objects"`
		}{Objects: objects})

	case "presigned_url":
		var args struct {
			Key        string `json:"key"`
			TTLSeconds int64  `json:"ttl_seconds"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		url, err := client.PresignedGetObject(ctx, bucket, args.Key, time.Duration(args.TTLSeconds)*time.Second, nil)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			URL string `json:"url"`
		}{URL: url.String()})

	default:
		return nil, fmt.Errorf("storage provider: unknown op %q", op)
	}
}
