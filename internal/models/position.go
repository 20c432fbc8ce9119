package models

import (
	"time"

	"gorm.io/gorm"
)

// PositionKind discriminates the three position flavours a user can hold
// against a vault.
type PositionKind string

const (
	KindWrap        PositionKind = "wrap"
	KindLP          PositionKind = "lp"
	KindLeveragedLP PositionKind = "leveraged_lp"
)

// Valid leverage factors, in percent. 100 = 1.00x (no borrow).
const (
	LeverageNone = int64(100)
	LeverageHalf = int64(150)
	LeverageFull = int64(200)
)

// ValidLeverageFactor reports whether lf is one of the three discrete
// leverage steps the protocol permits.
func ValidLeverageFactor(lf int64) bool {
	return lf == LeverageNone || lf == LeverageHalf || lf == LeverageFull
}

// Position records one user position against a vault. The (owner, vault,
// nonce) triple is unique so an owner can hold several concurrent positions
// per asset; closes always target an explicit position id, never a guess.
type Position struct {
	gorm.Model
	Owner   string       `gorm:"size:44;index:idx_positions_owner_vault_nonce,unique;index;not null"`
	VaultID uint         `gorm:"index:idx_positions_owner_vault_nonce,unique;index;not null"`
	Nonce   uint64       `gorm:"index:idx_positions_owner_vault_nonce,unique;not null"`
	Kind    PositionKind `gorm:"size:16;index;not null"`

	// Amounts in integer base units. StableAmount is zero for plain wrap
	// positions; BorrowedStable is zero unless leveraged.
	BaseAmount     int64 `gorm:"not null;default:0"`
	StableAmount   int64 `gorm:"not null;default:0"`
	BorrowedStable int64 `gorm:"not null;default:0"`
	LeverageFactor int64 `gorm:"not null;default:100"`

	// ReceiptLocked is the receipt-token amount backing this position. For
	// LP positions it is locked, not freely transferable, until close.
	ReceiptLocked int64 `gorm:"not null;default:0"`

	EntryExchangeRate int64 `gorm:"not null;default:0"`
	EntryPrice        int64 `gorm:"not null;default:0"`

	IsOpen   bool `gorm:"index;not null;default:true"`
	OpenedAt time.Time
	ClosedAt *time.Time
}
