package transfer

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"remsync/internal/config"
	"remsync/internal/converter"
	"remsync/internal/device"
	"remsync/internal/logging"
	"remsync/internal/progress"
)

// conversionLead is the progress span the conversion phase claims when the
// batch has anything to convert.
const conversionLead = 0.39

// Device is the transport surface the orchestrator needs.
type Device interface {
	Navigate(ctx context.Context, folderID string)
	Upload(ctx context.Context, req device.UploadRequest) (device.UploadResult, error)
}

// FolderResolver maps a folder path to a device folder id.
type FolderResolver interface {
	FindFolderID(ctx context.Context, name string) string
}

// Orchestrator runs a transfer batch: parallel EPUB conversion followed by
// strictly sequential uploads.
type Orchestrator struct {
	device    Device
	resolver  FolderResolver
	converter converter.Client
	hub       *progress.Hub
	cfg       *config.Config
	logger    *slog.Logger
}

// New wires an orchestrator.
func New(dev Device, resolver FolderResolver, conv converter.Client, hub *progress.Hub, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		device:    dev,
		resolver:  resolver,
		converter: conv,
		hub:       hub,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "transfer"),
	}
}

// Run transfers the batch and returns the visible names that reached the
// device. A conversion failure aborts the whole batch before any upload; an
// upload failure stops the remaining items but keeps what already landed.
func (o *Orchestrator) Run(ctx context.Context, items []*Item) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	unlock, err := o.acquireBatchLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	batchID := uuid.New()
	logger := o.logger.With(logging.String("batch_id", batchID.String()))
	logger.Info("starting transfer batch", logging.Int("items", len(items)))

	folderID := o.resolveFolder(ctx, logger)

	converted, err := o.convertAll(ctx, logger, items)
	if err != nil {
		for _, item := range items {
			item.Release()
		}
		return nil, err
	}

	return o.uploadAll(ctx, logger, items, folderID, converted)
}

// resolveFolder maps the configured target folder to a device id, once per
// batch. Uploads fall back to the root when the folder does not exist on the
// device.
func (o *Orchestrator) resolveFolder(ctx context.Context, logger *slog.Logger) string {
	target := o.cfg.Device.TargetFolder
	if target == "" {
		logger.Debug("no target folder configured, uploading to root")
		return ""
	}
	folderID := o.resolver.FindFolderID(ctx, target)
	if folderID == "" {
		logger.Warn("target folder not found on device, uploading to root",
			logging.String("folder", target))
		return ""
	}
	logger.Info("uploading to folder",
		logging.String("folder", target),
		logging.String("folder_id", folderID))
	return folderID
}

// convertAll runs phase 1: every EPUB that needs a PDF is converted in
// parallel. The first failure cancels in-flight conversions and aborts the
// batch. Returns whether anything was converted.
func (o *Orchestrator) convertAll(ctx context.Context, logger *slog.Logger, items []*Item) (bool, error) {
	var eligible []*Item
	for _, item := range items {
		if item.NeedsConvert {
			eligible = append(eligible, item)
		}
	}
	if len(eligible) == 0 {
		return false, nil
	}

	workers := conversionWorkers(len(eligible))
	logger.Info("converting epubs in parallel",
		logging.Int("count", len(eligible)),
		logging.Int("workers", workers))
	o.publish(0.01, fmt.Sprintf("Converting %d books...", len(eligible)))

	convertCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	options := converter.Options{
		Model:         o.cfg.Device.Model,
		MarginPt:      o.cfg.Conversion.MarginPt,
		FontSizePt:    o.cfg.Conversion.FontSizePt,
		FontFamily:    o.cfg.Conversion.FontFamily,
		EmbedAllFonts: o.cfg.Conversion.EmbedAllFonts,
	}
	budget := time.Duration(o.cfg.Conversion.TimeoutSeconds) * time.Second

	jobs := make(chan *Item)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var failedName string
	done := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if convertCtx.Err() != nil {
					continue
				}
				outputPath, err := o.convertOne(convertCtx, item, options, budget)
				mu.Lock()
				if err != nil {
					if firstErr == nil && convertCtx.Err() == nil {
						firstErr = err
						failedName = item.DisplayName
						cancel()
					}
					mu.Unlock()
					continue
				}
				item.ConvertedPath = outputPath
				done++
				fraction := 0.01 + float64(done)/float64(len(eligible))*conversionLead
				count := done
				mu.Unlock()
				o.publish(fraction, fmt.Sprintf("Converted %d/%d", count, len(eligible)))
			}
		}()
	}

	for _, item := range eligible {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		logger.Error("conversion failed, aborting batch",
			logging.String("item", failedName),
			logging.Error(firstErr))
		return false, fmt.Errorf("conversion failed for %q, batch aborted: %w", failedName, firstErr)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) convertOne(ctx context.Context, item *Item, options converter.Options, budget time.Duration) (string, error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return o.converter.Convert(ctx, item.SourcePath, options, nil)
}

// uploadAll runs phase 2: one shared navigation, then strictly sequential
// uploads. Each item's converted temp is released after its attempt
// regardless of outcome.
func (o *Orchestrator) uploadAll(ctx context.Context, logger *slog.Logger, items []*Item, folderID string, converted bool) ([]string, error) {
	if folderID != "" {
		o.device.Navigate(ctx, folderID)
	}

	base := 0.01
	if converted {
		base = 0.40
	}

	var uploaded []string
	total := len(items)
	for i, item := range items {
		window := progress.Window{
			Start: base + float64(i)/float64(total)*(1.0-base),
			End:   base + float64(i+1)/float64(total)*(1.0-base),
		}
		name := item.UploadName()
		status := "Uploading: " + name
		o.publish(window.Start, status)
		logger.Info("uploading",
			logging.String("path", item.UploadPath()),
			logging.String("name", name))

		_, err := o.device.Upload(ctx, device.UploadRequest{
			LocalPath:     item.UploadPath(),
			FolderID:      folderID,
			DisplayName:   name,
			InjectCover:   o.cfg.Device.InjectCover,
			NavigateFirst: false,
			OnProgress: func(fraction float64) {
				o.publish(window.Fraction(fraction), status)
			},
		})
		item.Release()
		if err != nil {
			return uploaded, fmt.Errorf("upload failed for %q: %w", name, err)
		}
		uploaded = append(uploaded, item.DisplayName)
		o.publish(window.End, "")
	}

	logger.Info("transfer batch complete", logging.Int("uploaded", len(uploaded)))
	return uploaded, nil
}

func (o *Orchestrator) publish(fraction float64, status string) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(progress.Event{Fraction: fraction, Status: status})
}

// acquireBatchLock takes the per-device file lock that keeps a second client
// from talking to the same tablet mid-batch.
func (o *Orchestrator) acquireBatchLock() (func(), error) {
	if err := os.MkdirAll(o.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	hash := fnv.New32a()
	hash.Write([]byte(o.cfg.Device.Address))
	lockPath := filepath.Join(o.cfg.DataDir, fmt.Sprintf("transfer-%08x.lock", hash.Sum32()))

	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire transfer lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another transfer is already running against %s", o.cfg.Device.Address)
	}
	return func() { _ = lock.Unlock() }, nil
}

// conversionWorkers scales the pool: one per book, clamped between 2 and 4
// by CPU count.
func conversionWorkers(books int) int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 4 {
		workers = 4
	}
	if workers > books {
		workers = books
	}
	return workers
}
