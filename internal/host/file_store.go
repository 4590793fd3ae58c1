package host

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/db/repositories"
	"infinite-experiment/plp/internal/logging"
	models "infinite-experiment/plp/internal/models/gorm"
)

// ObjectStorage is the slice of the MinIO client the file store needs.
type ObjectStorage interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// MinioFileStore keeps upload content in an S3 compatible bucket and the
// file metadata in the files table.
type MinioFileStore struct {
	client ObjectStorage
	bucket string
	files  *repositories.RecordStore[models.File]
}

var _ FileStore = (*MinioFileStore)(nil)

func NewMinioClient(cfg config.StorageConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return client, nil
}

func NewMinioFileStore(client ObjectStorage, bucket string, db *gorm.DB) *MinioFileStore {
	return &MinioFileStore{
		client: client,
		bucket: bucket,
		files:  repositories.NewRecordStore[models.File](db),
	}
}

func (s *MinioFileStore) StoreUploadedFile(ctx context.Context, userID int64, upload *Upload) (*models.File, error) {
	objectName := path.Join("plp", fmt.Sprint(userID), uuid.NewString()+"-"+path.Base(upload.FileName))

	_, err := s.client.PutObject(ctx, s.bucket, objectName, upload.Content, upload.Size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", upload.FileName, err)
	}

	file := &models.File{
		ObjectName:  objectName,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		UserID:      userID,
	}
	if err := s.files.Save(ctx, file); err != nil {
		return nil, err
	}

	logging.Info("Stored uploaded file", "file_id", file.ID, "object", objectName, "size", upload.Size)
	return file, nil
}

// GetFile returns nil, nil for an unknown id.
func (s *MinioFileStore) GetFile(ctx context.Context, id int64) (*models.File, error) {
	return s.files.Load(ctx, id)
}

func (s *MinioFileStore) Open(ctx context.Context, file *models.File) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, file.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.ObjectName, err)
	}
	return obj, nil
}
