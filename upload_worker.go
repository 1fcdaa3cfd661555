package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/salesfacts_backend/ingest"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
)

// UploadWorkerPool claims pending uploads and runs them through the
// ingestion pipeline. The upload table is its own queue: claims use
// FOR UPDATE SKIP LOCKED so replicas never fight over a file, and stale
// locks from a dead worker are reclaimed after LockTTL.
type UploadWorkerPool struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Orchestrator *ingest.Orchestrator
	Tracer       trace.Tracer
	WorkerID     string
	Workers      int
	Interval     time.Duration
	LockTTL      time.Duration

	// SoftTimeout only logs; HardTimeout cancels the upload's context.
	SoftTimeout time.Duration
	HardTimeout time.Duration
}

const defaultIngestWorkers = 4

func ingestWorkerCount() int {
	if v := strings.TrimSpace(os.Getenv("INGEST_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultIngestWorkers
}

func NewUploadWorkerPool(db *gorm.DB, logger *logrus.Logger) *UploadWorkerPool {
	hostname, _ := os.Hostname()
	return &UploadWorkerPool{
		DB:           db,
		Logger:       logger,
		Orchestrator: ingest.NewOrchestrator(),
		WorkerID:     hostname + "-" + time.Now().Format("20060102-150405.000"),
		Workers:      ingestWorkerCount(),
		Interval:     2 * time.Second,
		LockTTL:      15 * time.Minute,
		SoftTimeout:  10 * time.Minute,
		HardTimeout:  15 * time.Minute,
	}
}

func (p *UploadWorkerPool) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *UploadWorkerPool) processOnce(ctx context.Context) {
	// Pending rows with stale locks are reclaimed by the claim query below;
	// rows a dead worker left mid-pipeline have to be failed explicitly so
	// they become retryable.
	abandoned, err := models.FailAbandonedUploads(ctx, p.DB, p.LockTTL)
	if err != nil && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":     "UploadWorkerPool",
			"worker_id": p.WorkerID,
		}).Error("failing abandoned uploads failed: " + err.Error())
	}
	if abandoned > 0 && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":     "UploadWorkerPool",
			"worker_id": p.WorkerID,
			"count":     abandoned,
		}).Warn("abandoned uploads moved to failed")
	}

	claimed, err := models.ClaimQueuedUploads(ctx, p.DB, p.WorkerID, p.Workers, p.LockTTL)
	if err != nil {
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"field":     "UploadWorkerPool",
				"worker_id": p.WorkerID,
			}).Error("claiming uploads failed: " + err.Error())
		}
		return
	}
	if len(claimed) == 0 {
		return
	}

	var wg sync.WaitGroup
	for i := range claimed {
		wg.Add(1)
		go func(upload models.Upload) {
			defer wg.Done()
			p.processOne(ctx, upload)
		}(claimed[i])
	}
	wg.Wait()
}

func (p *UploadWorkerPool) processOne(ctx context.Context, upload models.Upload) {
	procCtx, cancel := context.WithTimeout(ctx, p.HardTimeout)
	defer cancel()
	procCtx = utils.SetWorkerIdInContext(procCtx, p.WorkerID)

	if p.Tracer != nil {
		var span trace.Span
		procCtx, span = p.Tracer.Start(procCtx, "upload.process")
		defer span.End()
	}

	softTimer := time.AfterFunc(p.SoftTimeout, func() {
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"field":     "UploadWorkerPool",
				"worker_id": p.WorkerID,
				"upload_id": upload.ID,
			}).Warn("upload still processing past soft timeout")
		}
	})
	defer softTimer.Stop()

	start := time.Now()
	if err := p.Orchestrator.ProcessUpload(procCtx, upload.ID); err != nil {
		// The orchestrator already persisted the failed status; the claim
		// lock is released so the row never looks stuck.
		_ = models.ReleaseUploadLock(context.Background(), p.DB, upload.ID)
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"field":     "UploadWorkerPool",
				"worker_id": p.WorkerID,
				"upload_id": upload.ID,
				"elapsed":   time.Since(start).String(),
			}).Error("upload processing failed: " + err.Error())
		}
		return
	}
	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":     "UploadWorkerPool",
			"worker_id": p.WorkerID,
			"upload_id": upload.ID,
			"elapsed":   time.Since(start).String(),
		}).Info("upload processed")
	}
}
