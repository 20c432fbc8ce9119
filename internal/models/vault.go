package models

import (
	"gorm.io/gorm"
)

// Vault is the authoritative record for one crucible: the pooled holding of
// a single base asset backing its receipt token. Amounts are integer base
// units (1e6 per whole token); rates are fixed-point scaled by 1e6.
type Vault struct {
	gorm.Model
	BaseMint    string `gorm:"size:44;uniqueIndex;not null"`
	ReceiptMint string `gorm:"size:44;uniqueIndex;not null"`
	Symbol      string `gorm:"size:16;index"`

	BaseBalance   int64 `gorm:"not null;default:0"`
	ReceiptSupply int64 `gorm:"not null;default:0"`
	FeesAccrued   int64 `gorm:"not null;default:0"`

	Paused bool `gorm:"not null;default:false"`

	// Relationships
	Positions []Position `gorm:"foreignKey:VaultID"`
}

// LendingPool is the isolated stable-asset pool leveraged positions borrow
// from. A single pool serves every vault.
type LendingPool struct {
	gorm.Model
	StableMint string `gorm:"size:44;uniqueIndex;not null"`

	TotalLiquidity int64 `gorm:"not null;default:0"`
	TotalBorrowed  int64 `gorm:"not null;default:0"`

	BorrowRateBps            int64 `gorm:"not null;default:0"`
	ProtocolFeeOnInterestBps int64 `gorm:"not null;default:0"`
}

// AvailableLiquidity returns the un-borrowed portion of the pool.
func (p *LendingPool) AvailableLiquidity() int64 {
	return p.TotalLiquidity - p.TotalBorrowed
}
