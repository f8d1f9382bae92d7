package handler

import (
	"context"

	fulfillmentapp "github.com/kif1r4ek/test-my-sklad/internal/application/fulfillment"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/stretchr/testify/mock"
)

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) Stores() []supply.Store {
	args := m.Called()
	stores, _ := args.Get(0).([]supply.Store)
	return stores
}

func (m *mockFeed) NewOrders(ctx context.Context, storeID string) ([]supply.Order, error) {
	args := m.Called(ctx, storeID)
	orders, _ := args.Get(0).([]supply.Order)
	return orders, args.Error(1)
}

func (m *mockFeed) Orders(ctx context.Context, storeID string) ([]supply.Order, error) {
	args := m.Called(ctx, storeID)
	orders, _ := args.Get(0).([]supply.Order)
	return orders, args.Error(1)
}

func (m *mockFeed) Supplies(ctx context.Context, storeID string) ([]supply.Supply, error) {
	args := m.Called(ctx, storeID)
	supplies, _ := args.Get(0).([]supply.Supply)
	return supplies, args.Error(1)
}

func (m *mockFeed) PickOrders(ctx context.Context, storeID string, dir supply.SortDirection, count int) (supply.Selection, error) {
	args := m.Called(ctx, storeID, dir, count)
	return args.Get(0).(supply.Selection), args.Error(1)
}

type mockCreator struct {
	mock.Mock
}

func (m *mockCreator) CreateSupply(ctx context.Context, storeID, name string, orderIDs []int64) (*supply.CreateResult, error) {
	args := m.Called(ctx, storeID, name, orderIDs)
	res, _ := args.Get(0).(*supply.CreateResult)
	return res, args.Error(1)
}

type mockAccess struct {
	mock.Mock
}

func (m *mockAccess) SettingsOverview(ctx context.Context, supplyID string) (*supply.SettingsOverview, error) {
	args := m.Called(ctx, supplyID)
	o, _ := args.Get(0).(*supply.SettingsOverview)
	return o, args.Error(1)
}

func (m *mockAccess) UpdateAccessMode(ctx context.Context, supplyID string, mode supply.AccessMode) (*supply.SettingsOverview, error) {
	args := m.Called(ctx, supplyID, mode)
	o, _ := args.Get(0).(*supply.SettingsOverview)
	return o, args.Error(1)
}

func (m *mockAccess) SetAccessUsers(ctx context.Context, supplyID string, userIDs []int64) error {
	return m.Called(ctx, supplyID, userIDs).Error(0)
}

func (m *mockAccess) ResetAccess(ctx context.Context, supplyID string) error {
	return m.Called(ctx, supplyID).Error(0)
}

func (m *mockAccess) Split(ctx context.Context, supplyID string) (*supply.DistributionResult, error) {
	args := m.Called(ctx, supplyID)
	res, _ := args.Get(0).(*supply.DistributionResult)
	return res, args.Error(1)
}

func (m *mockAccess) Redistribute(ctx context.Context, supplyID string) (*supply.DistributionResult, error) {
	args := m.Called(ctx, supplyID)
	res, _ := args.Get(0).(*supply.DistributionResult)
	return res, args.Error(1)
}

type mockLabels struct {
	mock.Mock
}

func (m *mockLabels) Start(ctx context.Context, supplyID, supplyName string, force bool) {
	m.Called(ctx, supplyID, supplyName, force)
}

func (m *mockLabels) Run(ctx context.Context, supplyID, supplyName string, force bool) (supply.LabelJobState, error) {
	args := m.Called(ctx, supplyID, supplyName, force)
	return args.Get(0).(supply.LabelJobState), args.Error(1)
}

type mockSupplyOrders struct {
	mock.Mock
}

func (m *mockSupplyOrders) ListSupplyOrders(ctx context.Context, supplyID string) ([]supply.SupplyOrder, error) {
	args := m.Called(ctx, supplyID)
	rows, _ := args.Get(0).([]supply.SupplyOrder)
	return rows, args.Error(1)
}

type mockViews struct {
	mock.Mock
}

func (m *mockViews) ListSupplies(ctx context.Context, actor supply.Actor) ([]supply.EmployeeSupply, error) {
	args := m.Called(ctx, actor)
	rows, _ := args.Get(0).([]supply.EmployeeSupply)
	return rows, args.Error(1)
}

func (m *mockViews) Items(ctx context.Context, actor supply.Actor, supplyID string) ([]supply.ItemGroup, error) {
	args := m.Called(ctx, actor, supplyID)
	rows, _ := args.Get(0).([]supply.ItemGroup)
	return rows, args.Error(1)
}

func (m *mockViews) Orders(ctx context.Context, actor supply.Actor, supplyID string, query fulfillmentapp.OrderQuery) ([]supply.SupplyOrder, error) {
	args := m.Called(ctx, actor, supplyID, query)
	rows, _ := args.Get(0).([]supply.SupplyOrder)
	return rows, args.Error(1)
}

type mockScans struct {
	mock.Mock
}

func (m *mockScans) Scan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error) {
	args := m.Called(ctx, actor, supplyID, orderID, barcode)
	o, _ := args.Get(0).(*supply.SupplyOrder)
	return o, args.Error(1)
}

func (m *mockScans) LabelScan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error) {
	args := m.Called(ctx, actor, supplyID, orderID, barcode)
	o, _ := args.Get(0).(*supply.SupplyOrder)
	return o, args.Error(1)
}

func (m *mockScans) Collect(ctx context.Context, actor supply.Actor, supplyID string, orderID int64) (*supply.SupplyOrder, error) {
	args := m.Called(ctx, actor, supplyID, orderID)
	o, _ := args.Get(0).(*supply.SupplyOrder)
	return o, args.Error(1)
}
