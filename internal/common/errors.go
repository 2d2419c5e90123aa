// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях экономики.
// Эти ошибки позволяют вызывающему коду (HTTP-слою, планировщику)
// различать типы проблем через errors.Is и реагировать по-разному.
package common

import "errors"

// Ошибки баланса (души, леджер)
var (
	// ErrInsufficientFunds — недостаточно душ на счёте. Исправляется игроком.
	ErrInsufficientFunds = errors.New("недостаточно душ на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная там, где нельзя)
	ErrInvalidAmount = errors.New("некорректная сумма")
	// ErrPlayerNotFound — игрок не найден
	ErrPlayerNotFound = errors.New("игрок не найден")
	// ErrInvalidPlayerID — пустой или слишком длинный идентификатор игрока
	ErrInvalidPlayerID = errors.New("некорректный идентификатор игрока")
	// ErrLedgerCorrupt — цепочка balance_after в леджере не сходится
	ErrLedgerCorrupt = errors.New("леджер повреждён")
)

// Ошибки кейсов и инвентаря
var (
	// ErrPoolNotFound — кейс с таким id не существует в каталоге
	ErrPoolNotFound = errors.New("кейс не найден")
	// ErrCatalogItemNotFound — шаблон предмета не найден в каталоге
	ErrCatalogItemNotFound = errors.New("предмет каталога не найден")
	// ErrItemNotFound — предмет не найден в инвентаре игрока
	ErrItemNotFound = errors.New("предмет не найден")
)

// Ошибки розыгрышей
var (
	// ErrGiveawayNotFound — розыгрыш не найден
	ErrGiveawayNotFound = errors.New("розыгрыш не найден")
	// ErrAlreadyEnded — розыгрыш уже завершён, повторно подводить итоги нельзя
	ErrAlreadyEnded = errors.New("розыгрыш уже завершён")
	// ErrNoEntries — в розыгрыше нет ни одного участника
	ErrNoEntries = errors.New("в розыгрыше нет участников")
	// ErrAlreadyJoined — игрок уже участвует в розыгрыше
	ErrAlreadyJoined = errors.New("игрок уже участвует в розыгрыше")
	// ErrNotEligible — игрок не проходит по условиям розыгрыша
	ErrNotEligible = errors.New("игрок не проходит по условиям розыгрыша")
	// ErrGiveawayClosed — приём заявок закрыт
	ErrGiveawayClosed = errors.New("приём заявок в розыгрыш закрыт")
	// ErrNotJoinable — в розыгрыш по лидерборду нельзя записаться вручную
	ErrNotJoinable = errors.New("в этот розыгрыш нельзя записаться")
	// ErrInvalidGiveaway — некорректные параметры розыгрыша
	ErrInvalidGiveaway = errors.New("некорректные параметры розыгрыша")
)

// Инфраструктурные ошибки
var (
	// ErrStorageUnavailable — хранилище недоступно. Операцию можно безопасно повторить:
	// транзакция либо применилась целиком, либо не применилась вовсе.
	ErrStorageUnavailable = errors.New("хранилище недоступно")
	// ErrNotificationFailed — не удалось отправить уведомление. Только логируется.
	ErrNotificationFailed = errors.New("не удалось отправить уведомление")
	// ErrUnauthorized — нет или неверный токен/ключ
	ErrUnauthorized = errors.New("доступ запрещён")
	// ErrRateLimited — слишком много запросов
	ErrRateLimited = errors.New("слишком много запросов, подождите")
	// ErrFeatureDisabled — функция отключена в настройках
	ErrFeatureDisabled = errors.New("функция временно отключена")
	// ErrInvalidInput — некорректные данные запроса (тело, параметры)
	ErrInvalidInput = errors.New("некорректные данные запроса")
)
