package fulfillment

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	applog "github.com/kif1r4ek/test-my-sklad/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ScanService runs the pack-verify-collect protocol of supply orders.
//
// An order is first verified by scanning the product barcode, then by
// scanning its shipping label, which also collects it. Collect is the manual
// path for orders whose label scan already passed.
type ScanService struct {
	sync     *SupplySync
	gate     supplyGate
	orders   supply.OrderRepository
	api      supply.MarketplaceAPI
	status   product.StatusSource
	notifier supply.Notifier
	recorder Recorder
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

// NewScanService creates a new ScanService
func NewScanService(
	sync *SupplySync,
	feed *OrderFeed,
	settings supply.SettingsRepository,
	access supply.AccessRepository,
	orders supply.OrderRepository,
	api supply.MarketplaceAPI,
	status product.StatusSource,
	notifier supply.Notifier,
	cfg Config,
	logger *zap.Logger,
) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		sync:     sync,
		gate:     supplyGate{settings: settings, access: access, feed: feed, logger: logger},
		orders:   orders,
		api:      api,
		status:   status,
		notifier: notifier,
		recorder: nopRecorder{},
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetRecorder sets the recorder of scan outcomes.
func (s *ScanService) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// WithClock replaces time.Now, mainly for tests.
func (s *ScanService) WithClock(now func() time.Time) *ScanService {
	s.now = now
	return s
}

// Scan verifies the product barcode of an order against the barcodes the
// product-status source knows for its article.
func (s *ScanService) Scan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error) {
	order, err := s.scan(ctx, actor, supplyID, orderID, barcode)
	s.record(StepScan, err)
	return order, err
}

// LabelScan verifies the shipping label of an order and collects it.
func (s *ScanService) LabelScan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error) {
	order, err := s.labelScan(ctx, actor, supplyID, orderID, barcode)
	s.record(StepLabelScan, err)
	return order, err
}

// Collect marks an order collected once both scans have passed.
func (s *ScanService) Collect(ctx context.Context, actor supply.Actor, supplyID string, orderID int64) (*supply.SupplyOrder, error) {
	order, err := s.collect(ctx, actor, supplyID, orderID)
	s.record(StepCollect, err)
	return order, err
}

func (s *ScanService) scan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error) {
	order, err := s.authorize(ctx, actor, supplyID, orderID)
	if err != nil {
		return nil, err
	}
	code := product.NormalizeBarcode(barcode)
	if code == "" {
		return nil, supply.ErrScanAgain
	}
	if order == nil {
		return nil, supply.ErrOrderNotFound
	}
	if order.State() >= supply.StateScanOK {
		return order, nil
	}

	status, err := s.status.Lookup(ctx, order.Article, false)
	if err != nil {
		s.log(ctx).Warn("Product status lookup failed",
			zap.String("supply_id", supplyID),
			zap.String("article", order.Article),
			zap.Error(err))
		return nil, supply.ErrScanAgain
	}
	matched := containsBarcode(status.Barcodes, code)
	if !matched {
		if fresh, err := s.status.Lookup(ctx, order.Article, true); err == nil {
			matched = containsBarcode(fresh.Barcodes, code)
		}
	}
	if !matched {
		return nil, supply.ErrScanAgain
	}

	if order.PassScan(actor, code, s.now()) {
		if err := s.orders.SaveScanProgress(ctx, order); err != nil {
			return nil, err
		}
	}
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return order, nil
}

func (s *ScanService) labelScan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error) {
	order, err := s.authorize(ctx, actor, supplyID, orderID)
	if err != nil {
		return nil, err
	}
	code := product.NormalizeBarcode(barcode)
	if code == "" {
		return nil, supply.ErrScanAgain
	}
	if order == nil {
		return nil, supply.ErrOrderNotFound
	}
	if err := order.CanLabelScan(); err != nil {
		return nil, err
	}
	if order.State() >= supply.StateLabelOK {
		return order, nil
	}

	expected, err := s.expectedLabel(ctx, order)
	if err != nil {
		s.log(ctx).Warn("Label barcode unavailable",
			zap.String("supply_id", supplyID),
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return nil, supply.ErrScanAgain
	}
	if expected == "" || expected != code {
		return nil, supply.ErrScanAgain
	}

	passed, err := order.PassLabelScan(actor, code, s.now())
	if err != nil {
		return nil, err
	}
	if passed {
		if err := s.orders.SaveScanProgress(ctx, order); err != nil {
			return nil, err
		}
	}
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return order, nil
}

func (s *ScanService) collect(ctx context.Context, actor supply.Actor, supplyID string, orderID int64) (*supply.SupplyOrder, error) {
	order, err := s.authorize(ctx, actor, supplyID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, supply.ErrOrderNotFound
	}
	collected, err := order.Collect(actor, s.now())
	if err != nil {
		return nil, err
	}
	if collected {
		if err := s.orders.SaveScanProgress(ctx, order); err != nil {
			return nil, err
		}
	}
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return order, nil
}

// authorize applies the supply's access mode to the actor and checks that the
// supply is still open in its store. The order is nil when it does not exist.
func (s *ScanService) authorize(ctx context.Context, actor supply.Actor, supplyID string, orderID int64) (*supply.SupplyOrder, error) {
	settings, accessUsers, err := s.gate.open(ctx, actor, supplyID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Get(ctx, supplyID, orderID)
	if err != nil && !errors.Is(err, supply.ErrOrderNotFound) {
		return nil, err
	}
	if order != nil {
		if err := supply.CheckAccess(settings, actor, accessUsers, order.AssignedUserID); err != nil {
			return nil, err
		}
	}

	if err := s.gate.active(ctx, settings); err != nil {
		return nil, err
	}
	return order, nil
}

// expectedLabel returns the barcode printed on the order's label. It is
// fetched once from the marketplace and then kept on the order.
func (s *ScanService) expectedLabel(ctx context.Context, order *supply.SupplyOrder) (string, error) {
	if code := product.NormalizeBarcode(order.StickerBarcode); code != "" {
		return code, nil
	}
	store, _, err := s.sync.StoreFor(ctx, order.SupplyID, "")
	if err != nil {
		return "", err
	}
	stickers, err := s.api.Stickers(ctx, store, []int64{order.OrderID}, s.cfg.Sticker)
	if err != nil {
		return "", err
	}
	var code string
	for _, st := range stickers {
		if st.OrderID == order.OrderID || len(stickers) == 1 {
			code = product.NormalizeBarcode(st.Barcode)
			break
		}
	}
	if code == "" {
		return "", nil
	}
	if err := s.orders.SetStickerBarcode(ctx, order.SupplyID, order.OrderID, code); err != nil {
		s.log(ctx).Warn("Failed to store label barcode", zap.Int64("order_id", order.OrderID), zap.Error(err))
	}
	order.StickerBarcode = code
	return code, nil
}

func (s *ScanService) record(step string, err error) {
	switch {
	case err == nil:
		s.recorder.ScanResult(step, OutcomeOK)
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNotFound):
		s.recorder.ScanResult(step, OutcomeDenied)
	default:
		s.recorder.ScanResult(step, OutcomeFailed)
	}
}

func containsBarcode(barcodes []string, code string) bool {
	return slices.ContainsFunc(barcodes, func(b string) bool {
		return product.NormalizeBarcode(b) == code
	})
}

// log returns the service logger with the request id and trace of ctx.
func (s *ScanService) log(ctx context.Context) *zap.Logger {
	l := applog.WithTraceContext(ctx, s.logger)
	if id := applog.GetRequestID(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	return l
}
