package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	applog "github.com/kif1r4ek/test-my-sklad/internal/infrastructure/logger"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const labelContentType = "application/pdf"

// LabelJob produces printable label documents for every order of a supply
// and uploads them to object storage. One job runs per supply at a time.
type LabelJob struct {
	sync     *SupplySync
	settings supply.SettingsRepository
	orders   supply.OrderRepository
	api      supply.MarketplaceAPI
	storage  supply.ObjectStorage
	renderer supply.LabelRenderer
	notifier supply.Notifier
	recorder Recorder
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger

	group singleflight.Group
}

// NewLabelJob creates a new LabelJob
func NewLabelJob(
	sync *SupplySync,
	settings supply.SettingsRepository,
	orders supply.OrderRepository,
	api supply.MarketplaceAPI,
	storage supply.ObjectStorage,
	renderer supply.LabelRenderer,
	notifier supply.Notifier,
	cfg Config,
	logger *zap.Logger,
) *LabelJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelJob{
		sync:     sync,
		settings: settings,
		orders:   orders,
		api:      api,
		storage:  storage,
		renderer: renderer,
		notifier: notifier,
		recorder: nopRecorder{},
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetRecorder sets the recorder of per-label outcomes.
func (j *LabelJob) SetRecorder(r Recorder) {
	if r != nil {
		j.recorder = r
	}
}

// WithClock replaces time.Now, mainly for tests.
func (j *LabelJob) WithClock(now func() time.Time) *LabelJob {
	j.now = now
	return j
}

// Start runs the job in the background. A job already running for the
// supply is joined instead of starting a second one.
func (j *LabelJob) Start(ctx context.Context, supplyID, supplyName string, force bool) {
	go func() {
		if _, err := j.Run(context.WithoutCancel(ctx), supplyID, supplyName, force); err != nil {
			j.logger.Error("Label job failed", zap.String("supply_id", supplyID), zap.Error(err))
		}
	}()
}

// Run runs the job and waits for it. Without force only orders that have no
// label yet are fetched.
func (j *LabelJob) Run(ctx context.Context, supplyID, supplyName string, force bool) (supply.LabelJobState, error) {
	ch := j.group.DoChan(supplyID, func() (any, error) {
		return j.run(context.WithoutCancel(ctx), supplyID, supplyName, force)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return supply.LabelJobState{}, res.Err
		}
		return res.Val.(supply.LabelJobState), nil
	case <-ctx.Done():
		return supply.LabelJobState{}, ctx.Err()
	}
}

func (j *LabelJob) run(ctx context.Context, supplyID, supplyName string, force bool) (supply.LabelJobState, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "label_job", "run",
		telemetry.SpanAttrSupplyID, supplyID,
		"force", force)
	defer span.End()

	state, err := j.generate(ctx, supplyID, supplyName, force)
	if err != nil {
		telemetry.RecordError(span, err)
		return state, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, state.Total, "loaded", state.Loaded)
	return state, nil
}

func (j *LabelJob) generate(ctx context.Context, supplyID, supplyName string, force bool) (supply.LabelJobState, error) {
	store, settings, err := j.sync.StoreFor(ctx, supplyID, supplyName)
	if err != nil {
		return supply.LabelJobState{}, err
	}
	if err := j.sync.EnsureSnapshot(ctx, supplyID, supplyName); err != nil {
		return supply.LabelJobState{}, fmt.Errorf("sync supply: %w", err)
	}
	logger := applog.WithTraceContext(ctx, j.logger).With(applog.Supply(supplyID, store.ID)...)

	prefix := settings.LabelsPrefix
	if prefix == "" || force {
		name := supplyName
		if name == "" {
			name = settings.SupplyName
		}
		prefix = supply.BuildLabelsPrefix(supplyID, name, j.now())
		if err := j.settings.SetLabelsPrefix(ctx, supplyID, prefix); err != nil {
			return supply.LabelJobState{}, err
		}
	}

	rows, err := j.orders.List(ctx, supplyID, supply.OrderFilter{OrderByID: true})
	if err != nil {
		return supply.LabelJobState{}, err
	}
	var toFetch []int64
	alreadyLoaded := 0
	for _, row := range rows {
		if row.StickerURL != "" {
			alreadyLoaded++
			if !force {
				continue
			}
		}
		toFetch = append(toFetch, row.OrderID)
	}

	state := supply.LabelJobState{Status: supply.LabelsLoading, Total: len(rows)}
	if !force {
		state.Loaded = alreadyLoaded
	}
	startedAt := j.now()
	state.StartedAt = &startedAt
	if err := j.settings.StartLabels(ctx, supplyID, state.Total, state.Loaded); err != nil {
		return state, err
	}
	j.notifier.NotifySupplyUpdate(supplyID, true)
	logger.Info("Label job started", zap.Int("total", state.Total), zap.Int("to_fetch", len(toFetch)), zap.Bool("force", force))

	failures := 0
	for _, batch := range supply.ChunkIDs(toFetch, j.cfg.LabelBatchSize) {
		stickers, err := j.api.Stickers(ctx, store, batch, j.cfg.Sticker)
		if err != nil {
			logger.Warn("Sticker batch failed", zap.Int("batch", len(batch)), zap.Error(err))
		}
		byOrder := make(map[int64]supply.Sticker, len(stickers))
		for _, st := range stickers {
			byOrder[st.OrderID] = st
		}

		for _, orderID := range batch {
			var failure string
			switch st, ok := byOrder[orderID]; {
			case err != nil:
				failure = err.Error()
			case !ok || st.File == "":
				failure = stickerMissingMsg
			default:
				if uploadErr := j.upload(ctx, supplyID, prefix, st); uploadErr != nil {
					failure = uploadErr.Error()
				}
			}

			if failure != "" {
				failures++
				j.recorder.LabelResult(OutcomeFailed)
				if recErr := j.orders.RecordStickerError(ctx, supplyID, orderID, failure); recErr != nil {
					logger.Warn("Failed to record sticker error", zap.Int64("order_id", orderID), zap.Error(recErr))
				}
			} else {
				state.Advance()
				j.recorder.LabelResult(OutcomeOK)
			}
			if updErr := j.settings.UpdateLabelsLoaded(ctx, supplyID, state.Loaded); updErr != nil {
				logger.Warn("Failed to store label progress", zap.Error(updErr))
			}
			j.notifier.NotifySupplyUpdate(supplyID, false)
		}
	}

	state.Finish(failures, j.now())
	if err := j.settings.FinishLabels(ctx, supplyID, state); err != nil {
		return state, err
	}
	j.notifier.NotifySupplyUpdate(supplyID, true)
	logger.Info("Label job finished",
		zap.String("status", string(state.Status)),
		zap.Int("loaded", state.Loaded),
		zap.Int("failures", failures))
	return state, nil
}

func (j *LabelJob) upload(ctx context.Context, supplyID, prefix string, st supply.Sticker) error {
	doc, err := j.renderer.Render(st.File)
	if err != nil {
		return fmt.Errorf("render label: %w", err)
	}
	key := supply.LabelKey(prefix, st.OrderID)
	url, err := j.storage.Upload(ctx, key, doc, labelContentType)
	if err != nil {
		return fmt.Errorf("upload label: %w", err)
	}
	return j.orders.RecordSticker(ctx, supplyID, supply.StickerRecord{
		OrderID: st.OrderID,
		URL:     url,
		Key:     key,
		Barcode: st.Barcode,
	})
}
