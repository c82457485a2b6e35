package worker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/adserve/internal/config"
	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/service/suppression"
)

// memStore is the minimal in-memory Store for import tests. Only CreateList
// sees traffic here.
type memStore struct {
	lists map[string]*domain.SuppressionList
}

func newMemStore() *memStore {
	return &memStore{lists: make(map[string]*domain.SuppressionList)}
}

func (m *memStore) CreateList(_ context.Context, list *domain.SuppressionList, identifiers []domain.IdentifierRecord) error {
	if _, ok := m.lists[list.ID]; ok {
		return suppression.ErrDuplicateList
	}
	cp := *list
	cp.Identifiers = identifiers
	m.lists[list.ID] = &cp
	return nil
}

func (m *memStore) GetList(_ context.Context, id string) (*domain.SuppressionList, error) {
	list, ok := m.lists[id]
	if !ok {
		return nil, suppression.ErrNotFound
	}
	return list, nil
}

func (m *memStore) UpdateList(_ context.Context, id string, _ domain.ListUpdate) error {
	if _, ok := m.lists[id]; !ok {
		return suppression.ErrNotFound
	}
	return nil
}

func (m *memStore) DeleteList(_ context.Context, id string) (bool, error) {
	_, ok := m.lists[id]
	delete(m.lists, id)
	return ok, nil
}

func (m *memStore) GetListsByAdvertiser(_ context.Context, _ string, _ domain.ListFilter) ([]domain.SuppressionList, error) {
	return nil, nil
}

func (m *memStore) FindAdvertisersForIdentifier(_ context.Context, _ string, _ domain.IdentifierType) (*domain.IdentifierLookup, error) {
	return &domain.IdentifierLookup{Advertisers: []string{}}, nil
}

func newTestService(t *testing.T, store suppression.Store, fetcher ObjectFetcher) (*ImportService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.ImportConfig{
		Enabled:  true,
		Queue:    "adserve:import:jobs",
		S3Bucket: "imports",
	}
	return NewImportService(suppression.NewService(store), client, fetcher, cfg), mr
}

func TestImport_LocalFileEndToEnd(t *testing.T) {
	store := newMemStore()
	svc, mr := newTestService(t, store, nil)

	hashA := strings.Repeat("a1", 32)
	hashB := strings.Repeat("b2", 32)
	content := strings.Join([]string{
		`Email,Added`, // header
		``,
		`# comment line`,
		`"` + hashA + `","2026-01-10"`,
		hashB,
		hashA,           // duplicate of line 4
		`not valid!!!`,  // malformed
		`u@example.com`, // raw email, accepted leniently
	}, "\n")

	path := filepath.Join(t.TempDir(), "list.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	job, err := svc.Enqueue(ctx, ImportRequest{
		AdvertiserID:   "adv_1",
		Name:           "january optout dump",
		IdentifierType: "email_hash",
		FilePath:       path,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got, _ := mr.Lpop(svc.cfg.Queue); got != job.ID {
		t.Fatalf("queued id = %q, want %q", got, job.ID)
	}

	svc.process(ctx, job.ID)

	prog, err := svc.GetProgress(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if prog.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed (errors: %v)", prog.Status, prog.Errors)
	}
	if prog.ImportedCount != 3 {
		t.Errorf("imported = %d, want 3 (two hashes + one raw email)", prog.ImportedCount)
	}
	if prog.DuplicateCount != 1 {
		t.Errorf("duplicates = %d, want 1", prog.DuplicateCount)
	}
	if prog.InvalidCount != 1 {
		t.Errorf("invalid = %d, want 1", prog.InvalidCount)
	}
	if len(prog.Warnings) != 1 {
		t.Errorf("warnings = %v, want one raw-email warning", prog.Warnings)
	}

	list, err := store.GetList(context.Background(), prog.ListID)
	if err != nil {
		t.Fatalf("created list not in store: %v", err)
	}
	if list.Size != 3 || len(list.Identifiers) != 3 {
		t.Errorf("list size = %d with %d identifiers, want 3", list.Size, len(list.Identifiers))
	}
}

type stubFetcher struct {
	body string
	key  string
	err  error
}

func (f *stubFetcher) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = *in.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestImport_S3Source(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{body: "11112222-3333-4444-5555-666677778888\n"}
	svc, _ := newTestService(t, store, fetcher)

	ctx := context.Background()
	job, err := svc.Enqueue(ctx, ImportRequest{
		AdvertiserID:   "adv_1",
		Name:           "device optouts",
		IdentifierType: "device_id",
		S3Key:          "dumps/devices.txt",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	svc.process(ctx, job.ID)

	if fetcher.key != "dumps/devices.txt" {
		t.Errorf("fetched key = %q", fetcher.key)
	}
	prog, _ := svc.GetProgress(ctx, job.ID)
	if prog.Status != StatusCompleted || prog.ImportedCount != 1 {
		t.Fatalf("progress = %+v, want 1 imported", prog)
	}
}

func TestImport_EnqueueValidation(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  ImportRequest
	}{
		{"missing name", ImportRequest{AdvertiserID: "a", IdentifierType: "email_hash", FilePath: "x"}},
		{"bad type", ImportRequest{AdvertiserID: "a", Name: "n", IdentifierType: "phone", FilePath: "x"}},
		{"no source", ImportRequest{AdvertiserID: "a", Name: "n", IdentifierType: "email_hash"}},
		{"both sources", ImportRequest{AdvertiserID: "a", Name: "n", IdentifierType: "email_hash", FilePath: "x", S3Key: "y"}},
		{"s3 not configured", ImportRequest{AdvertiserID: "a", Name: "n", IdentifierType: "email_hash", S3Key: "y"}},
	}
	for _, tc := range cases {
		if _, err := svc.Enqueue(ctx, tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestImport_MissingFileFailsJob(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), nil)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, ImportRequest{
		AdvertiserID:   "adv_1",
		Name:           "missing",
		IdentifierType: "email_hash",
		FilePath:       "/nonexistent/file.txt",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	svc.process(ctx, job.ID)

	prog, _ := svc.GetProgress(ctx, job.ID)
	if prog.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", prog.Status)
	}
	if len(prog.Errors) == 0 {
		t.Error("expected an error detail")
	}
	stored, _ := svc.GetJob(ctx, job.ID)
	if stored.Status != StatusFailed {
		t.Errorf("job status = %q, want failed", stored.Status)
	}
}

func TestImport_WorksWithoutRedis(t *testing.T) {
	store := newMemStore()
	svc := NewImportService(suppression.NewService(store), nil, nil, config.ImportConfig{Queue: "q"})

	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("c3", 32)+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	job, err := svc.Enqueue(ctx, ImportRequest{
		AdvertiserID:   "adv_1",
		Name:           "no redis",
		IdentifierType: "email_hash",
		FilePath:       path,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	id, ok := svc.dequeue(ctx)
	if !ok || id != job.ID {
		t.Fatalf("dequeue = %q, %v", id, ok)
	}
	svc.process(ctx, job.ID)

	prog, err := svc.GetProgress(ctx, job.ID)
	if err != nil || prog.Status != StatusCompleted {
		t.Fatalf("progress = %+v, err = %v", prog, err)
	}
}
