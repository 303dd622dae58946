// Package archivesvc implements core.Archiver.
package archivesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
)

type S3Archiver struct {
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

var _ core.Archiver = (*S3Archiver)(nil)

// NewS3Archiver uploads to conf.Bucket. Credentials come from the default AWS chain
// (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY, shared config or instance role).
func NewS3Archiver(conf core.ArchiveConfig) (*S3Archiver, error) {
	if conf.Bucket == "" {
		return nil, errors.New("archive bucket is not configured")
	}

	awsConf := &aws.Config{Region: aws.String(conf.Region)}
	if conf.Endpoint != "" {
		awsConf.Endpoint = aws.String(conf.Endpoint)
		awsConf.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}

	return &S3Archiver{
		uploader: s3manager.NewUploader(sess),
		bucket:   conf.Bucket,
		prefix:   conf.Prefix,
	}, nil
}

func (a *S3Archiver) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	out, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(path.Join(a.prefix, key)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading to S3")
	}
	return out.Location, nil
}

// FileArchiver writes into a local directory.
type FileArchiver struct {
	dir string
}

var _ core.Archiver = (*FileArchiver)(nil)

func NewFileArchiver(dir string) *FileArchiver {
	return &FileArchiver{dir: dir}
}

func (a *FileArchiver) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	fp := filepath.Join(a.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating archive directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating archive file")
	}
	if _, err = io.Copy(f, body); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing archive file")
	}
	return fp, errors.Wrap(f.Close(), "closing archive file")
}
