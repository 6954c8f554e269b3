package pipeline

import (
	"context"
	"fmt"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	log "github.com/sirupsen/logrus"
)

// OSSUploader stores encoded audio in an Alibaba Cloud OSS bucket and hands
// back the public URL the speech service fetches it from.
type OSSUploader struct {
	client *oss.Client
	bucket string
	region string
}

func NewOSSUploader(region, bucket, accessKeyID, accessKeySecret string) *OSSUploader {
	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret)).
		WithRegion(region)

	return &OSSUploader{
		client: oss.NewClient(cfg),
		bucket: bucket,
		region: region,
	}
}

func (u *OSSUploader) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	result, err := u.client.PutObjectFromFile(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(u.bucket),
		Key:    oss.Ptr(objectKey),
	}, localPath)
	if err != nil {
		return "", fmt.Errorf("oss put object %q: %w", objectKey, err)
	}

	log.Infof("uploaded %s -> oss://%s/%s (etag %s)", localPath, u.bucket, objectKey, oss.ToString(result.ETag))
	return fmt.Sprintf("https://%s.oss-%s.aliyuncs.com/%s", u.bucket, u.region, objectKey), nil
}
