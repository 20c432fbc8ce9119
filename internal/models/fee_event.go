package models

import (
	"time"

	"gorm.io/gorm"
)

// FeeSource names the operation that produced a fee split.
type FeeSource string

const (
	FeeSourceWrap        FeeSource = "wrap"
	FeeSourceUnwrap      FeeSource = "unwrap"
	FeeSourceLPOpen      FeeSource = "lp_open"
	FeeSourceLPClose     FeeSource = "lp_close"
	FeeSourceLiquidation FeeSource = "liquidation"
	FeeSourceInterest    FeeSource = "interest"
	FeeSourceArbDeposit  FeeSource = "arb_deposit"
)

// FeeEvent is an append-only journal row recording how each fee was split
// between vault yield and the protocol treasury. Accrued-yield reporting is
// derived from this journal rather than recomputed from raw transactions.
type FeeEvent struct {
	gorm.Model
	VaultID       uint      `gorm:"index:idx_fee_events_vault_time;not null"`
	Source        FeeSource `gorm:"size:16;index;not null"`
	PositionID    *uint     `gorm:"index"`
	VaultShare    int64     `gorm:"not null;default:0"`
	TreasuryShare int64     `gorm:"not null;default:0"`
	OccurredAt    time.Time `gorm:"index:idx_fee_events_vault_time"`
}
