package media

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// VideoAssetUpdater persists ingestion status updates for published videos.
type VideoAssetUpdater interface {
	MarkAssetReady(ctx context.Context, videoID, location string, size int64) error
	MarkAssetFailed(ctx context.Context, videoID string) error
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize int
	Workers   int
}

// IngestJob describes a video payload spooled to a local temp file awaiting
// upload to object storage.
type IngestJob struct {
	VideoID     string
	AssetKey    string
	TempPath    string
	ContentType string
}

// Ingestor uploads spooled video payloads to object storage in the
// background and records the outcome on the video row. The temp file is
// removed whether or not the upload succeeds.
type Ingestor struct {
	storage ObjectStorage
	updater VideoAssetUpdater
	logger  *slog.Logger

	jobs   chan IngestJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errIngestorClosed = errors.New("media ingestor closed")

const uploadTimeout = 2 * time.Minute

// NewIngestor starts a worker pool that persists video assets.
func NewIngestor(storage ObjectStorage, updater VideoAssetUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		storage: storage,
		updater: updater,
		logger:  logger,
		jobs:    make(chan IngestJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules asset persistence for the supplied job.
func (i *Ingestor) Enqueue(ctx context.Context, job IngestJob) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	for {
		select {
		case <-i.ctx.Done():
			return
		case job, ok := <-i.jobs:
			if !ok {
				return
			}
			i.handleJob(job)
		}
	}
}

func (i *Ingestor) handleJob(job IngestJob) {
	defer func() {
		if err := os.Remove(job.TempPath); err != nil && !os.IsNotExist(err) {
			i.logger.Warn("remove spooled upload", "videoId", job.VideoID, "path", job.TempPath, "error", err)
		}
	}()

	if i.storage == nil || i.updater == nil {
		i.logger.Error("media ingestor missing dependencies", "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	file, err := os.Open(job.TempPath)
	if err != nil {
		i.logger.Error("open spooled upload", "videoId", job.VideoID, "path", job.TempPath, "error", err)
		i.recordFailure(job.VideoID)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		i.logger.Error("stat spooled upload", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
		return
	}

	uploadCtx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	location, err := i.storage.Save(uploadCtx, job.AssetKey, file, job.ContentType)
	if err != nil {
		i.logger.Error("video asset upload failed", "videoId", job.VideoID, "key", job.AssetKey, "error", err)
		i.recordFailure(job.VideoID)
		return
	}

	if err := i.recordSuccess(job.VideoID, location, info.Size()); err != nil {
		i.logger.Error("mark asset ready", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
	}
}

func (i *Ingestor) recordFailure(videoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.MarkAssetFailed(ctx, videoID); err != nil {
		i.logger.Error("record asset failure", "videoId", videoID, "error", err)
	}
}

func (i *Ingestor) recordSuccess(videoID, location string, size int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return i.updater.MarkAssetReady(ctx, videoID, location, size)
}
