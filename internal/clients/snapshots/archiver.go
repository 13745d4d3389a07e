package snapshots

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	appconfig "patternwatch/internal/config"
	"patternwatch/internal/domain"
)

// Archiver uploads triggering market snapshots and database backups to
// S3-compatible storage (Cloudflare R2 or stock S3).
type Archiver struct {
	client    *s3.Client
	bucket    string
	publicURL string
	log       zerolog.Logger
}

// NewArchiver creates a new snapshot archiver from configuration.
// Returns (nil, nil) when archival is not configured; callers treat a nil
// archiver as disabled.
func NewArchiver(cfg *appconfig.SnapshotConfig, log zerolog.Logger) (*Archiver, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Archiver{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		log:       log.With().Str("client", "snapshot_archiver").Logger(),
	}, nil
}

// candleSnapshot is the stored snapshot format
type candleSnapshot struct {
	PatternID string          `msgpack:"pattern_id"`
	Pair      string          `msgpack:"pair"`
	Timeframe string          `msgpack:"timeframe"`
	TakenAt   int64           `msgpack:"taken_at"`
	Candles   []domain.Candle `msgpack:"candles"`
}

// ArchiveCandles uploads the candle series that triggered an alert and
// returns the object's reference URL
func (a *Archiver) ArchiveCandles(ctx context.Context, patternID string, pair string, timeframe domain.Timeframe, candles []domain.Candle) (string, error) {
	now := time.Now().UTC()

	snap := candleSnapshot{
		PatternID: patternID,
		Pair:      pair,
		Timeframe: string(timeframe),
		TakenAt:   now.Unix(),
		Candles:   candles,
	}

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s/%s.msgpack", patternID, now.Format("2006-01-02-150405"))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/msgpack"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	a.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Snapshot archived")

	return a.objectURL(key), nil
}

// UploadBackup uploads a database backup file, used by the nightly
// maintenance job
func (a *Archiver) UploadBackup(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read backup file: %w", err)
	}

	key := fmt.Sprintf("backups/%s-%s", time.Now().UTC().Format("2006-01-02"), filepath.Base(path))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	a.log.Info().Str("key", key).Int("bytes", len(data)).Msg("Database backup uploaded")

	return a.objectURL(key), nil
}

func (a *Archiver) objectURL(key string) string {
	if a.publicURL != "" {
		return a.publicURL + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key)
}
