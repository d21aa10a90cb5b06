package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/domain/warehouse"
)

func SeedCountry(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Country {
	tb.Helper()
	c := &types.Country{CountryName: name}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed country: %v", err)
	}
	return c
}

func SeedCustomer(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, countryID uint) *types.Customer {
	tb.Helper()
	c := &types.Customer{CustomerID: id, CountryID: &countryID}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed customer: %v", err)
	}
	return c
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, price string) *types.Product {
	tb.Helper()
	p := &types.Product{
		ProductID:   id,
		Description: "product " + id,
		Category:    types.UnknownCategory,
		UnitPrice:   decimal.RequireFromString(price),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedDay(tb testing.TB, ctx context.Context, tx *gorm.DB, day time.Time) *types.CalendarDay {
	tb.Helper()
	d := warehouse.NewCalendarDay(day)
	if err := tx.WithContext(ctx).Create(&d).Error; err != nil {
		tb.Fatalf("seed day: %v", err)
	}
	return &d
}

// SeedSale inserts one fact row; amount is derived from quantity and price.
func SeedSale(tb testing.TB, ctx context.Context, tx *gorm.DB, invoice, customerID, productID string, dateID uint, qty int, price string) *types.SalesLineItem {
	tb.Helper()
	p := decimal.RequireFromString(price)
	s := &types.SalesLineItem{
		InvoiceNo:   invoice,
		ProductID:   productID,
		CustomerID:  customerID,
		DateID:      dateID,
		Quantity:    qty,
		UnitPrice:   p,
		TotalAmount: p.Mul(decimal.NewFromInt(int64(qty))),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed sale: %v", err)
	}
	return s
}
