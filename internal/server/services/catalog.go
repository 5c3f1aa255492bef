package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dpolyakov/minimart/internal/logging"
	sc "github.com/dpolyakov/minimart/internal/server/config"
	"github.com/dpolyakov/minimart/internal/server/models"
	"github.com/dpolyakov/minimart/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Test seams around the AWS SDK so presign paths can be exercised without a
// live endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignValidity = 15 * time.Minute

// CatalogService manages products. Product images live in S3-compatible
// object storage; clients upload and download them through presigned URLs,
// the service never proxies image bytes. When no S3 endpoint is configured
// the catalog still works, just without image URLs.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	log         logging.Logger
}

func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, log logging.Logger) *CatalogService {
	return &CatalogService{
		db:          db,
		repomanager: m,
		config:      cfg,
		log:         log.With("module", "catalog_service"),
	}
}

// RandomImageKey returns a fresh object-storage key for a product image.
func RandomImageKey() string {
	d := time.Now()
	return fmt.Sprintf("products/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// List returns all products, newest first.
func (s *CatalogService) List(ctx context.Context) ([]*models.Product, error) {
	return s.repomanager.Products(s.db).List(ctx)
}

// Get returns a product and, when it has an image and object storage is
// configured, a presigned GET URL for it.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, string, error) {
	product, err := s.repomanager.Products(s.db).Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if product.ImageKey == "" || !s.s3Enabled() {
		return product, "", nil
	}

	url, err := s.presignedGetURL(ctx, product.ImageKey)
	if err != nil {
		// The product itself is still useful without its image link.
		s.log.Warn(ctx, "presign image url failed", "product_id", product.ID, "error", err.Error())
		return product, "", nil
	}

	return product, url, nil
}

// Create inserts a product. When withImage is set and object storage is
// configured, an image key is assigned and a presigned PUT URL returned for
// the client to upload the image to.
func (s *CatalogService) Create(ctx context.Context, product *models.Product, withImage bool) (*models.Product, string, error) {
	var uploadURL string

	if withImage && s.s3Enabled() {
		key, url, err := s.presignedPutURL(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("error presigning upload url: %w", err)
		}
		product.ImageKey = key
		uploadURL = url
	}

	created, err := s.repomanager.Products(s.db).Create(ctx, product)
	if err != nil {
		return nil, "", err
	}

	s.log.Info(ctx, "product created", "product_id", created.ID)
	return created, uploadURL, nil
}

func (s *CatalogService) s3Enabled() bool {
	return s.config.S3BaseEndpoint != ""
}

func (s *CatalogService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *CatalogService) presignedPutURL(ctx context.Context) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := RandomImageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

func (s *CatalogService) presignedGetURL(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
