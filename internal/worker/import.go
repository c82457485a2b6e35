// Package worker runs the bulk suppression import pipeline. Jobs arrive on
// a Redis queue, the file body is streamed from S3 or local disk, and the
// parsed identifiers land in the index store as one new suppression list.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/adserve/internal/config"
	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/metrics"
	"github.com/ignite/adserve/internal/pkg/logger"
	"github.com/ignite/adserve/internal/service/suppression"
)

const (
	jobTTL       = 24 * time.Hour
	maxLineBytes = 2 * 1024 * 1024
	sampleErrMax = 20
	pollTimeout  = 5 * time.Second
)

// Job statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrJobNotFound is returned when no job exists under the given id.
var ErrJobNotFound = errors.New("import job not found")

// ObjectFetcher is the slice of the S3 API the importer needs.
type ObjectFetcher interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ImportRequest describes a bulk import: list metadata plus exactly one
// source, an S3 key or a path on local disk.
type ImportRequest struct {
	AdvertiserID   string `json:"advertiser_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	IdentifierType string `json:"identifier_type"`
	S3Key          string `json:"s3_key,omitempty"`
	FilePath       string `json:"file_path,omitempty"`
}

// ImportJob is the queued unit of work.
type ImportJob struct {
	ID        string        `json:"id"`
	Request   ImportRequest `json:"request"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// ImportProgress is the caller-visible state of a running or finished job.
type ImportProgress struct {
	JobID          string     `json:"job_id"`
	Status         string     `json:"status"`
	ListID         string     `json:"list_id,omitempty"`
	TotalLines     int64      `json:"total_lines"`
	ImportedCount  int64      `json:"imported_count"`
	DuplicateCount int64      `json:"duplicate_count"`
	InvalidCount   int64      `json:"invalid_count"`
	Warnings       []string   `json:"warnings,omitempty"`
	Errors         []string   `json:"errors,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ImportService queues and executes bulk suppression imports. Progress is
// tracked in Redis when available, with an in-memory fallback so the service
// still works in single-node deployments without Redis.
type ImportService struct {
	lists *suppression.Service
	redis *redis.Client // optional
	s3    ObjectFetcher // optional, S3-sourced jobs fail without it
	cfg   config.ImportConfig

	mu       sync.RWMutex
	jobs     map[string]*ImportJob
	progress map[string]*ImportProgress
	pending  []string // in-memory queue when redis is absent
}

// NewImportService wires the importer. redisClient and fetcher may be nil.
func NewImportService(lists *suppression.Service, redisClient *redis.Client, fetcher ObjectFetcher, cfg config.ImportConfig) *ImportService {
	return &ImportService{
		lists:    lists,
		redis:    redisClient,
		s3:       fetcher,
		cfg:      cfg,
		jobs:     make(map[string]*ImportJob),
		progress: make(map[string]*ImportProgress),
	}
}

func (s *ImportService) hasRedis() bool { return s.redis != nil }

func jobKey(id string) string      { return "adserve:import:job:" + id }
func progressKey(id string) string { return "adserve:import:progress:" + id }

// Enqueue validates the request shape and pushes a job onto the queue.
func (s *ImportService) Enqueue(ctx context.Context, req ImportRequest) (*ImportJob, error) {
	if req.AdvertiserID == "" || req.Name == "" {
		return nil, fmt.Errorf("advertiser_id and name are required")
	}
	if !domain.IdentifierType(req.IdentifierType).Valid() {
		return nil, fmt.Errorf("unsupported identifier type %q", req.IdentifierType)
	}
	if (req.S3Key == "") == (req.FilePath == "") {
		return nil, fmt.Errorf("exactly one of s3_key or file_path is required")
	}
	if req.S3Key != "" && s.s3 == nil {
		return nil, fmt.Errorf("s3 imports are not configured")
	}

	job := &ImportJob{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.storeJob(ctx, job)
	s.setProgress(ctx, &ImportProgress{
		JobID:     job.ID,
		Status:    StatusQueued,
		StartedAt: job.CreatedAt,
		UpdatedAt: job.CreatedAt,
	})

	if s.hasRedis() {
		if err := s.redis.LPush(ctx, s.cfg.Queue, job.ID).Err(); err != nil {
			return nil, fmt.Errorf("enqueue import job: %w", err)
		}
	} else {
		s.mu.Lock()
		s.pending = append(s.pending, job.ID)
		s.mu.Unlock()
	}

	logger.Info("import job queued",
		"job_id", job.ID,
		"advertiser_id", req.AdvertiserID,
		"identifier_type", req.IdentifierType,
	)
	return job, nil
}

// Run consumes the queue until ctx is cancelled. Intended to be launched as
// a goroutine from main.
func (s *ImportService) Run(ctx context.Context) {
	logger.Info("import worker started", "queue", s.cfg.Queue)
	for {
		jobID, ok := s.dequeue(ctx)
		if !ok {
			if ctx.Err() != nil {
				logger.Info("import worker stopped")
				return
			}
			continue
		}
		s.process(ctx, jobID)
	}
}

// dequeue blocks for up to pollTimeout waiting for the next job id.
func (s *ImportService) dequeue(ctx context.Context) (string, bool) {
	if s.hasRedis() {
		res, err := s.redis.BRPop(ctx, pollTimeout, s.cfg.Queue).Result()
		if err != nil || len(res) < 2 {
			return "", false
		}
		return res[1], true
	}

	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		select {
		case <-ctx.Done():
		case <-time.After(pollTimeout):
		}
		return "", false
	}
	id := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()
	return id, true
}

// process runs one job end to end. All identifiers are parsed before the
// single atomic CreateList call, so a failed job leaves nothing behind.
func (s *ImportService) process(ctx context.Context, jobID string) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		logger.Warn("dequeued unknown import job", "job_id", jobID)
		return
	}

	start := time.Now().UTC()
	job.Status = StatusProcessing
	s.storeJob(ctx, job)
	s.setProgress(ctx, &ImportProgress{
		JobID:     jobID,
		Status:    StatusProcessing,
		StartedAt: start,
		UpdatedAt: start,
	})

	body, err := s.open(ctx, job.Request)
	if err != nil {
		s.fail(ctx, jobID, start, err)
		return
	}
	defer body.Close()

	t := domain.IdentifierType(job.Request.IdentifierType)
	parsed, stats := parseIdentifierFile(body, t)

	if stats.scanErr != nil {
		s.fail(ctx, jobID, start, fmt.Errorf("read import file: %w", stats.scanErr))
		return
	}

	list, warnings, err := s.lists.CreateList(ctx, suppression.CreateListInput{
		AdvertiserID:   job.Request.AdvertiserID,
		Name:           job.Request.Name,
		Description:    job.Request.Description,
		IdentifierType: t,
		Identifiers:    parsed,
	})
	if err != nil {
		s.fail(ctx, jobID, start, fmt.Errorf("persist imported list: %w", err))
		return
	}

	imported := int64(list.Size)
	duplicates := int64(len(parsed)) - imported
	metrics.ImportRowsTotal.WithLabelValues("imported").Add(float64(imported))
	metrics.ImportRowsTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	metrics.ImportRowsTotal.WithLabelValues("invalid").Add(float64(stats.invalid))

	now := time.Now().UTC()
	job.Status = StatusCompleted
	s.storeJob(ctx, job)
	s.setProgress(ctx, &ImportProgress{
		JobID:          jobID,
		Status:         StatusCompleted,
		ListID:         list.ID,
		TotalLines:     stats.lines,
		ImportedCount:  imported,
		DuplicateCount: duplicates,
		InvalidCount:   stats.invalid,
		Warnings:       warnings,
		Errors:         stats.sampleErrs,
		StartedAt:      start,
		UpdatedAt:      now,
		CompletedAt:    &now,
	})

	logger.Info("import job completed",
		"job_id", jobID,
		"list_id", list.ID,
		"lines", stats.lines,
		"imported", imported,
		"duplicates", duplicates,
		"invalid", stats.invalid,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// open resolves the job source into a readable body.
func (s *ImportService) open(ctx context.Context, req ImportRequest) (io.ReadCloser, error) {
	if req.S3Key != "" {
		if s.s3 == nil {
			return nil, fmt.Errorf("s3 imports are not configured")
		}
		out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.S3Bucket),
			Key:    aws.String(req.S3Key),
		})
		if err != nil {
			return nil, fmt.Errorf("fetch s3://%s/%s: %w", s.cfg.S3Bucket, req.S3Key, err)
		}
		return out.Body, nil
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	return f, nil
}

type parseStats struct {
	lines      int64
	invalid    int64
	sampleErrs []string
	scanErr    error
}

// parseIdentifierFile streams one-identifier-per-line input, tolerating CSV
// with the identifier in the first column, surrounding quotes, comment lines,
// and a header row. Malformed values are counted and sampled, never fatal.
func parseIdentifierFile(r io.Reader, t domain.IdentifierType) ([]string, parseStats) {
	var (
		out   []string
		stats parseStats
		first = true
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		stats.lines++

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if first {
			first = false
			if isHeaderRow(line) {
				continue
			}
		}

		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}

		if _, err := suppression.ValidateIdentifier(line, t); err != nil {
			stats.invalid++
			if len(stats.sampleErrs) < sampleErrMax {
				stats.sampleErrs = append(stats.sampleErrs,
					fmt.Sprintf("line %d: %s", stats.lines, logger.RedactIdentifier(line)))
			}
			continue
		}
		out = append(out, line)
	}
	stats.scanErr = scanner.Err()
	return out, stats
}

// isHeaderRow spots CSV header lines like "Email,Added" or "device_id".
func isHeaderRow(line string) bool {
	head := strings.ToLower(line)
	if i := strings.IndexByte(head, ','); i >= 0 {
		head = head[:i]
	}
	switch strings.TrimSpace(strings.Trim(head, `"`)) {
	case "email", "email_hash", "emailhash", "device_id", "deviceid", "identifier", "hash", "md5", "sha256":
		return true
	}
	return false
}

func (s *ImportService) fail(ctx context.Context, jobID string, start time.Time, err error) {
	logger.Error("import job failed", "job_id", jobID, "error", err)

	if job, gerr := s.GetJob(ctx, jobID); gerr == nil {
		job.Status = StatusFailed
		s.storeJob(ctx, job)
	}
	now := time.Now().UTC()
	s.setProgress(ctx, &ImportProgress{
		JobID:       jobID,
		Status:      StatusFailed,
		Errors:      []string{err.Error()},
		StartedAt:   start,
		UpdatedAt:   now,
		CompletedAt: &now,
	})
}

func (s *ImportService) storeJob(ctx context.Context, job *ImportJob) {
	if s.hasRedis() {
		data, _ := json.Marshal(job)
		s.redis.Set(ctx, jobKey(job.ID), data, jobTTL)
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

func (s *ImportService) setProgress(ctx context.Context, p *ImportProgress) {
	if s.hasRedis() {
		data, _ := json.Marshal(p)
		s.redis.Set(ctx, progressKey(p.JobID), data, jobTTL)
	}
	s.mu.Lock()
	s.progress[p.JobID] = p
	s.mu.Unlock()
}

// GetJob fetches a queued or finished job.
func (s *ImportService) GetJob(ctx context.Context, jobID string) (*ImportJob, error) {
	if s.hasRedis() {
		data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
		if err == nil {
			var job ImportJob
			if jerr := json.Unmarshal(data, &job); jerr == nil {
				return &job, nil
			}
		}
	}

	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// GetProgress fetches the current progress snapshot for a job.
func (s *ImportService) GetProgress(ctx context.Context, jobID string) (*ImportProgress, error) {
	if s.hasRedis() {
		data, err := s.redis.Get(ctx, progressKey(jobID)).Bytes()
		if err == nil {
			var p ImportProgress
			if jerr := json.Unmarshal(data, &p); jerr == nil {
				return &p, nil
			}
		}
	}

	s.mu.RLock()
	p, ok := s.progress[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return p, nil
}
