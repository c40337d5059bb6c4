package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Model for the pricing table. One row is active at a time; activating a
// new price closes out the previous one.
type Pricing struct {
	ID            int64           `json:"id"            gorm:"column:id;primaryKey"`
	PricePerCrate decimal.Decimal `json:"pricePerCrate" gorm:"column:price_per_crate;type:numeric(12,2)"`
	Currency      string          `json:"currency"      gorm:"column:currency"`
	EffectiveFrom time.Time       `json:"effectiveFrom" gorm:"column:effective_from"`
	EffectiveTo   *time.Time      `json:"effectiveTo,omitempty" gorm:"column:effective_to"`
	MarketFactor  float64         `json:"marketFactor"  gorm:"column:market_factor"`
	Trend         string          `json:"trend"         gorm:"column:trend"` // up / down / stable
	Notes         *string         `json:"notes,omitempty" gorm:"column:notes"`
	CreatedBy     string          `json:"createdBy"     gorm:"column:created_by"`
	Active        bool            `json:"isActive"      gorm:"column:active"`
	CreatedAt     time.Time       `json:"createdAt"     gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updatedAt"     gorm:"column:updated_at"`
}

func (Pricing) TableName() string {
	return "pricing"
}

// CurrentPrice returns the newest active price whose effective window
// contains now. Falls back to the newest active price when no window
// matches, mirroring how the ordering flow has always resolved price.
func CurrentPrice(db *gorm.DB, now time.Time) (*Pricing, error) {
	var p Pricing
	err := db.Where("active = ? AND effective_from <= ?", true, now).
		Where("effective_to IS NULL OR effective_to >= ?", now).
		Order("effective_from DESC").
		First(&p).Error
	if err == nil {
		return &p, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	err = db.Where("active = ?", true).Order("effective_from DESC").First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
