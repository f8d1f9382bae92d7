package supply

import "github.com/kif1r4ek/test-my-sklad/internal/domain/shared"

var (
	// Lookup errors
	ErrSupplyUnavailable = shared.Derive(shared.ErrNotFound, "Поставка недоступна")
	ErrOrderNotFound     = shared.Derive(shared.ErrNotFound, "Заказ не найден")
	ErrStoreNotFound     = shared.Derive(shared.ErrNotFound, "Магазин не найден")

	// Access errors
	ErrAccessDenied = shared.Derive(shared.ErrForbidden, "FORBIDDEN")

	// Scan protocol errors. ErrScanAgain is deliberately generic.
	ErrScanAgain       = shared.Derive(shared.ErrInvalidInput, "Отсканируйте повторно")
	ErrFinishPackFirst = shared.Derive(shared.ErrInvalidState, "Сначала пройдите безошибочную сборку")
	ErrPackNotPassed   = shared.Derive(shared.ErrInvalidState, "Безошибочная сборка не пройдена")
	ErrLabelNotPassed  = shared.Derive(shared.ErrInvalidState, "Скан этикетки не пройден")

	// Settings and distribution errors
	ErrInvalidAccessMode = shared.Derive(shared.ErrInvalidInput, "Некорректный режим доступа")
	ErrNoAccessUsers     = shared.Derive(shared.ErrInvalidInput, "Не выбраны сотрудники")

	// Creation errors
	ErrInvalidSupplyName = shared.Derive(shared.ErrInvalidInput, "Неверное имя поставки")
	ErrInvalidOrderCount = shared.Derive(shared.ErrInvalidInput, "Неверное количество заказов")
	ErrSupplyNotCreated  = shared.Derive(shared.ErrRemoteUnavailable, "Не удалось создать поставку")
)
