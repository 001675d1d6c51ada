package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/blobstore"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/folders"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/images"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/settings"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/stores"
)

// -------- test fakes --------

type fakeStoresRepo struct {
	stores.Repository
	mu     sync.Mutex
	rows   []*models.Store
	nextID int64

	statusChanges map[int64]models.StoreStatus
	addUploads    []int64
	subtracted    []int64
	counters      map[int64][2]int64
}

func newFakeStoresRepo(rows ...*models.Store) *fakeStoresRepo {
	f := &fakeStoresRepo{
		rows:          rows,
		nextID:        100,
		statusChanges: make(map[int64]models.StoreStatus),
		counters:      make(map[int64][2]int64),
	}
	return f
}

func (f *fakeStoresRepo) GetActive(ctx context.Context) (*models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.Store
	for _, s := range f.rows {
		if !s.Active() {
			continue
		}
		if best == nil || s.Priority < best.Priority ||
			(s.Priority == best.Priority && s.ID < best.ID) {
			best = s
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeStoresRepo) GetByID(ctx context.Context, id int64) (*models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeStoresRepo) GetByName(ctx context.Context, owner, name string) (*models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		if s.Owner == owner && s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeStoresRepo) List(ctx context.Context) ([]*models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Store, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeStoresRepo) NamesByPrefix(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, s := range f.rows {
		if len(s.Name) >= len(prefix) && s.Name[:len(prefix)] == prefix {
			names = append(names, s.Name)
		}
	}
	return names, nil
}

func (f *fakeStoresRepo) ActivateExclusive(ctx context.Context, store *models.Store) (*models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		if s.Status == models.StoreStatusActive {
			s.Status = models.StoreStatusInactive
		}
	}
	f.nextID++
	cp := *store
	cp.ID = f.nextID
	cp.Status = models.StoreStatusActive
	f.rows = append(f.rows, &cp)
	out := cp
	return &out, nil
}

func (f *fakeStoresRepo) SetStatus(ctx context.Context, id int64, status models.StoreStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusChanges[id] = status
	for _, s := range f.rows {
		if s.ID == id {
			s.Status = status
		}
	}
	return nil
}

func (f *fakeStoresRepo) UpdateCounters(ctx context.Context, id int64, fileCount, sizeEstimate int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[id] = [2]int64{fileCount, sizeEstimate}
	for _, s := range f.rows {
		if s.ID == id {
			s.FileCount = fileCount
			s.SizeEstimate = sizeEstimate
		}
	}
	return nil
}

func (f *fakeStoresRepo) AddUpload(ctx context.Context, id int64, sizeBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addUploads = append(f.addUploads, sizeBytes)
	for _, s := range f.rows {
		if s.ID == id {
			s.SizeEstimate += sizeBytes
			s.FileCount++
		}
	}
	return nil
}

func (f *fakeStoresRepo) SubtractDelete(ctx context.Context, id int64, sizeBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subtracted = append(f.subtracted, sizeBytes)
	return nil
}

func (f *fakeStoresRepo) FirstDeployHook(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		if s.DeployHookURL != "" {
			return s.DeployHookURL, nil
		}
	}
	return "", common.ErrorNotFound
}

type fakeFoldersRepo struct {
	folders.Repository
	mu     sync.Mutex
	rows   map[string]*models.Folder
	nextID int64

	// skipInsert simulates the losing side of a race where neither the
	// insert nor any concurrent winner produced a row.
	skipInsert bool
}

func newFakeFoldersRepo() *fakeFoldersRepo {
	return &fakeFoldersRepo{rows: make(map[string]*models.Folder)}
}

func folderKey(storeID int64, path string) string {
	return fmt.Sprintf("%d:%s", storeID, path)
}

func (f *fakeFoldersRepo) GetByPath(ctx context.Context, storeID int64, path string) (*models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.rows[folderKey(storeID, path)]; ok {
		cp := *fl
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFoldersRepo) InsertIfAbsent(ctx context.Context, folder *models.Folder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipInsert {
		return nil
	}
	key := folderKey(folder.StoreID, folder.Path)
	if _, ok := f.rows[key]; ok {
		return nil
	}
	f.nextID++
	cp := *folder
	cp.ID = f.nextID
	f.rows[key] = &cp
	return nil
}

func (f *fakeFoldersRepo) ListByStore(ctx context.Context, storeID int64) ([]*models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Folder
	for _, fl := range f.rows {
		if fl.StoreID == storeID {
			cp := *fl
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeImagesRepo struct {
	images.Repository
	mu     sync.Mutex
	rows   map[int64]*models.Image
	nextID int64

	statsCount int64
	statsSize  int64
}

func newFakeImagesRepo() *fakeImagesRepo {
	return &fakeImagesRepo{rows: make(map[int64]*models.Image)}
}

func (f *fakeImagesRepo) Exists(ctx context.Context, storeID int64, filename string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.rows {
		if img.StoreID == storeID && img.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeImagesRepo) Insert(ctx context.Context, image *models.Image) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.rows {
		if img.StoreID == image.StoreID && img.Filename == image.Filename {
			return nil, common.ErrorConflict
		}
	}
	f.nextID++
	cp := *image
	cp.ID = f.nextID
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeImagesRepo) GetByID(ctx context.Context, id int64) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if img, ok := f.rows[id]; ok {
		cp := *img
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeImagesRepo) Delete(ctx context.Context, id int64) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, id)
	cp := *img
	return &cp, nil
}

func (f *fakeImagesRepo) StatsByStore(ctx context.Context, storeID int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statsCount, f.statsSize, nil
}

type fakeSettingsRepo struct {
	settings.Repository
	mu   sync.Mutex
	rows map[string]string
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: make(map[string]string)}
}

func (f *fakeSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[key]; ok {
		return v, nil
	}
	return "", common.ErrorNotFound
}

func (f *fakeSettingsRepo) Upsert(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[key] = value
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	st *fakeStoresRepo
	fo *fakeFoldersRepo
	im *fakeImagesRepo
	se *fakeSettingsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		st: newFakeStoresRepo(),
		fo: newFakeFoldersRepo(),
		im: newFakeImagesRepo(),
		se: newFakeSettingsRepo(),
	}
}

func (m *fakeRepoManager) Stores() stores.Repository     { return m.st }
func (m *fakeRepoManager) Folders() folders.Repository   { return m.fo }
func (m *fakeRepoManager) Images() images.Repository     { return m.im }
func (m *fakeRepoManager) Settings() settings.Repository { return m.se }

// fakeBlobClient records writes in memory.
type fakeBlobClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	stores  map[string]bool

	putErr    error
	createErr error
	puts      []string
	created   []string
}

func newFakeBlobClient() *fakeBlobClient {
	return &fakeBlobClient{
		objects: make(map[string][]byte),
		stores:  make(map[string]bool),
	}
}

func blobKey(ref blobstore.StoreRef, path string) string {
	return ref.Owner + "/" + ref.Name + "/" + path
}

func (c *fakeBlobClient) Get(ctx context.Context, ref blobstore.StoreRef, path string) (*blobstore.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.objects[blobKey(ref, path)]; ok {
		return &blobstore.Object{Path: path, SHA: "sha-" + path, Content: b}, nil
	}
	return nil, blobstore.ErrNotFound
}

func (c *fakeBlobClient) Put(ctx context.Context, ref blobstore.StoreRef, path string, content []byte, message, sha string) (*blobstore.PutResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return nil, c.putErr
	}
	key := blobKey(ref, path)
	c.objects[key] = content
	c.puts = append(c.puts, key)
	return &blobstore.PutResult{SHA: "sha-" + path}, nil
}

func (c *fakeBlobClient) Delete(ctx context.Context, ref blobstore.StoreRef, path, sha, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := blobKey(ref, path)
	if _, ok := c.objects[key]; !ok {
		return blobstore.ErrNotFound
	}
	delete(c.objects, key)
	return nil
}

func (c *fakeBlobClient) StoreExists(ctx context.Context, ref blobstore.StoreRef) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stores[ref.Owner+"/"+ref.Name], nil
}

func (c *fakeBlobClient) CreateStore(ctx context.Context, ref blobstore.StoreRef, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return c.createErr
	}
	c.stores[ref.Owner+"/"+ref.Name] = true
	c.created = append(c.created, ref.Name)
	return nil
}

type fakePropagator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (p *fakePropagator) PropagateStoreList(ctx context.Context, names []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, names)
	return p.err
}

// -------- helpers --------

func testLogger(t *testing.T) logging.Logger {
	t.Helper()
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
