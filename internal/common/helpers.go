// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с часовыми поясами.
package common

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer форматирует числа по правилам русской локали (разделитель тысяч — пробел).
var printer = message.NewPrinter(language.Russian)

// PluralizeSouls возвращает правильную форму слова «душа» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "душа" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "души" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "душ" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeSouls(1)  → "душа"
//	PluralizeSouls(3)  → "души"
//	PluralizeSouls(11) → "душ"
func PluralizeSouls(n int64) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "душа"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "души"
	}
	return "душ"
}

// FormatNumber форматирует число с разделителями тысяч.
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatBalance форматирует баланс в читабельную строку.
// Пример: FormatBalance(150) → "150 душ"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizeSouls(balance))
}

// FormatSoulsAmount создаёт строку вида "+100 душ" или "-50 душ".
func FormatSoulsAmount(amount int64) string {
	if amount >= 0 {
		return "+" + FormatBalance(amount)
	}
	return FormatBalance(amount)
}

// LoadLocation загружает часовой пояс по имени.
// Если tzdata в контейнере нет — возвращает фиксированный UTC+3 (Москва).
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" в заданном поясе.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
