package money_test

import (
	"errors"
	"testing"

	"staybook/internal/domain/shared/money"
)

func TestNew(t *testing.T) {
	m, err := money.New(1500, "usd")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Currency != "USD" {
		t.Fatalf("currency = %q, want USD", m.Currency)
	}
	if _, err := money.New(100, "dollars"); !errors.Is(err, money.ErrInvalidCurrency) {
		t.Fatalf("err = %v, want ErrInvalidCurrency", err)
	}
}

func TestArithmetic(t *testing.T) {
	a := money.Must(1000, "USD")
	b := money.Must(250, "USD")

	sum, err := a.Add(b)
	if err != nil || sum.Amount != 1250 {
		t.Fatalf("Add = %v, %v", sum, err)
	}
	diff, err := a.Sub(b)
	if err != nil || diff.Amount != 750 {
		t.Fatalf("Sub = %v, %v", diff, err)
	}
	if _, err := a.Add(money.Must(1, "EUR")); !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Fatalf("err = %v, want ErrCurrencyMismatch", err)
	}
	if got := a.Multiply(3).Amount; got != 3000 {
		t.Fatalf("Multiply = %d, want 3000", got)
	}
}

func TestPercent_Truncates(t *testing.T) {
	m := money.Must(999, "USD")
	if got := m.Percent(50).Amount; got != 499 {
		t.Fatalf("Percent(50) of 999 = %d, want 499", got)
	}
	if got := m.Percent(100).Amount; got != 999 {
		t.Fatalf("Percent(100) = %d, want 999", got)
	}
	if got := m.Percent(0); !got.IsZero() || got.Currency != "USD" {
		t.Fatalf("Percent(0) = %v, want zero USD", got)
	}
	if got := m.Percent(150).Amount; got != 999 {
		t.Fatalf("Percent(150) = %d, want clamped to 999", got)
	}
}
