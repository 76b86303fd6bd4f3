// Package domain defines the core persistence models for the faucet backend.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

// ClaimRecord is a confirmed faucet claim. A row is written exactly once, at
// the moment the distribution service reports an on-chain transaction hash
// for a submission; pending or timed-out submissions never produce a row.
//
// Fields:
//   - ID: surrogate key assigned by the store (insertion order).
//   - CreatedAt: UNIX seconds (UTC) of confirmation; the cooldown window is
//     measured from this instant.
//   - RequesterID: stable identifier of the requesting user (not unique).
//   - GuildID / ChannelID: optional originating context, audit only.
//   - Address: destination address the funds were sent to.
//   - TransactionID: distribution service submission id. Unique; this is the
//     idempotency key that prevents double-recording a submission.
//   - TxHash: confirmed on-chain transaction hash (always present).
//   - AmountWei: optional decimal-string amount for display.
//
// Rows are immutable after insertion.
type ClaimRecord struct {
	ID            uint64  `json:"id"                   gorm:"primaryKey;autoIncrement"`
	CreatedAt     int64   `json:"created_at"           gorm:"type:INTEGER NOT NULL;autoCreateTime;index:idx_claims_user_time,priority:2,sort:desc"`
	RequesterID   string  `json:"requester_id"         gorm:"type:TEXT NOT NULL;index:idx_claims_user_time,priority:1"`
	GuildID       *string `json:"guild_id,omitempty"   gorm:"type:TEXT"`
	ChannelID     *string `json:"channel_id,omitempty" gorm:"type:TEXT"`
	Address       string  `json:"address"              gorm:"type:TEXT NOT NULL"`
	TransactionID string  `json:"transaction_id"       gorm:"type:TEXT NOT NULL;uniqueIndex:idx_claims_txid"`
	TxHash        string  `json:"tx_hash"              gorm:"type:TEXT NOT NULL"`
	AmountWei     *string `json:"amount_wei,omitempty" gorm:"type:TEXT"`
}

// TableName implements the GORM tabler interface.
func (ClaimRecord) TableName() string { return "claims" }

// ContextRefs carries the optional conversation references a claim was
// requested from. They are stored for audit and never affect behavior.
type ContextRefs struct {
	GuildID   string
	ChannelID string
}

// StrPtr returns nil for an empty string and a pointer to s otherwise.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
